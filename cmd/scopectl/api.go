package main

import (
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"strconv"
	"strings"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/gorilla/mux"
	"github.com/jasonwbarnett/fileserver"

	"github.com/openlabkit/scopectl/dispatch"
	"github.com/openlabkit/scopectl/illuminator"
	"github.com/openlabkit/scopectl/outputs"
	"github.com/openlabkit/scopectl/routine"
	"github.com/openlabkit/scopectl/stage"
)

type api struct {
	http.Handler
	disp   *dispatch.Dispatcher
	engine *routine.Engine
	stage  *stage.Encoder
	lamp   *illuminator.Switch
	sse    *sse.Server
}

type statusPayload struct {
	Status   string `json:"status"`
	Outputs  string `json:"outputs"`
	LastGood string `json:"lastGood"`
	Routine  string `json:"routine,omitempty"`
	Running  bool   `json:"running"`
}

func newAPI(disp *dispatch.Dispatcher, engine *routine.Engine, enc *stage.Encoder, lamp *illuminator.Switch, uiDir string) *api {
	r := mux.NewRouter()

	a := &api{
		Handler: r,
		disp:    disp,
		engine:  engine,
		stage:   enc,
		lamp:    lamp,
		sse: sse.NewServer(&sse.Options{
			Logger: log.New(ioutil.Discard, "", 0),
		}),
	}

	r.HandleFunc("/api/status", a.status).Methods("GET")
	r.HandleFunc("/api/outputs", a.getOutputs).Methods("GET")
	r.HandleFunc("/api/outputs", a.setOutputs).Methods("POST")
	r.HandleFunc("/api/outputs/{index:[0-9]+}", a.setOutput).Methods("PUT")
	r.HandleFunc("/api/outputs/presets", a.listPresets).Methods("GET")
	r.HandleFunc("/api/outputs/preset/{name}", a.setPreset).Methods("POST")
	r.HandleFunc("/api/stage/move", a.moveStage).Methods("POST")
	r.HandleFunc("/api/illuminator", a.setIlluminator).Methods("POST")
	r.HandleFunc("/api/routines", a.listRoutines).Methods("GET")
	r.HandleFunc("/api/routines/cancel", a.cancelRoutine).Methods("POST")
	r.HandleFunc("/api/routines/{name}/start", a.startRoutine).Methods("POST")
	r.PathPrefix("/events/").Handler(a.sse)
	r.PathPrefix("/").Handler(fileserver.New(http.Dir(uiDir)))

	go a.broadcast()

	return a
}

// broadcast relays routine events and status snapshots to any
// connected SSE clients.
func (a *api) broadcast() {
	for ev := range a.engine.Events() {
		data, err := json.Marshal(ev)
		if err != nil {
			log.Printf("ERROR: marshal json: %+v", err)
			continue
		}
		a.sse.SendMessage("/events/routine", sse.SimpleMessage(string(data)))
		a.sendStatus()
	}
}

func (a *api) sendStatus() {
	data, err := json.Marshal(a.snapshot())
	if err != nil {
		log.Printf("ERROR: marshal json: %+v", err)
		return
	}
	a.sse.SendMessage("/events/status", sse.SimpleMessage(string(data)))
}

func (a *api) snapshot() statusPayload {
	p := statusPayload{
		Status:   a.disp.Status(),
		Outputs:  a.disp.Current(),
		LastGood: a.disp.LastGood(),
	}
	p.Routine, p.Running = a.engine.Running()
	return p
}

func (a *api) writeSnapshot(w http.ResponseWriter) {
	err := json.NewEncoder(w).Encode(a.snapshot())
	if err != nil {
		log.Println("ERROR: encode:", err)
	}
}

// fail maps errors to status codes: rejected input is the client's
// fault, anything else is a transport problem.
func fail(w http.ResponseWriter, err error) {
	if _, ok := err.(outputs.ValidationError); ok {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (a *api) status(w http.ResponseWriter, req *http.Request) {
	a.writeSnapshot(w)
}

func (a *api) getOutputs(w http.ResponseWriter, req *http.Request) {
	w.Write([]byte(a.disp.Current()))
}

func (a *api) setOutputs(w http.ResponseWriter, req *http.Request) {
	data, err := ioutil.ReadAll(req.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = a.disp.SetManual(strings.TrimSpace(string(data)))
	a.sendStatus()
	if err != nil {
		fail(w, err)
		return
	}
	a.writeSnapshot(w)
}

func (a *api) setOutput(w http.ResponseWriter, req *http.Request) {
	index, err := strconv.Atoi(mux.Vars(req)["index"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = a.disp.SetBit(index, req.FormValue("on") == "1")
	a.sendStatus()
	if err != nil {
		fail(w, err)
		return
	}
	a.writeSnapshot(w)
}

func (a *api) listPresets(w http.ResponseWriter, req *http.Request) {
	err := json.NewEncoder(w).Encode(a.disp.Presets())
	if err != nil {
		log.Println("ERROR: encode:", err)
	}
}

func (a *api) setPreset(w http.ResponseWriter, req *http.Request) {
	err := a.disp.ApplyPreset(mux.Vars(req)["name"])
	a.sendStatus()
	if err != nil {
		fail(w, err)
		return
	}
	a.writeSnapshot(w)
}

func (a *api) moveStage(w http.ResponseWriter, req *http.Request) {
	var err error
	parse := func(param string) (val float64) {
		if err != nil {
			return 0
		}
		val, err = strconv.ParseFloat(req.FormValue(param), 64)
		return val
	}
	distance := parse("distance")
	velocity := parse("velocity")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cmd, err := a.stage.Move(req.FormValue("direction"), distance, velocity)
	if err == stage.ErrUnsupportedDirection || err == stage.ErrInvalidParameter {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Printf("ERROR: move: %+v", err)
		http.Error(w, err.Error(), 500)
		return
	}
	err = json.NewEncoder(w).Encode(cmd)
	if err != nil {
		log.Println("ERROR: encode:", err)
	}
}

func (a *api) setIlluminator(w http.ResponseWriter, req *http.Request) {
	err := a.lamp.Set(req.FormValue("on") == "1")
	if err != nil {
		log.Printf("ERROR: illuminator: %+v", err)
		http.Error(w, err.Error(), 500)
		return
	}
}

func (a *api) listRoutines(w http.ResponseWriter, req *http.Request) {
	err := json.NewEncoder(w).Encode(a.engine.Routines())
	if err != nil {
		log.Println("ERROR: encode:", err)
	}
}

func (a *api) startRoutine(w http.ResponseWriter, req *http.Request) {
	name := mux.Vars(req)["name"]
	if req.FormValue("supersede") == "1" {
		a.engine.Cancel()
	}
	err := a.engine.Start(name)
	if err == routine.ErrBusy {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err == routine.ErrUnknownRoutine {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	a.writeSnapshot(w)
}

func (a *api) cancelRoutine(w http.ResponseWriter, req *http.Request) {
	a.engine.Cancel()
	a.writeSnapshot(w)
}
