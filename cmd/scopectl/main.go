package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/tarm/serial"

	"github.com/openlabkit/scopectl/config"
	"github.com/openlabkit/scopectl/dispatch"
	"github.com/openlabkit/scopectl/illuminator"
	"github.com/openlabkit/scopectl/outputs"
	"github.com/openlabkit/scopectl/plc"
	"github.com/openlabkit/scopectl/routine"
	"github.com/openlabkit/scopectl/spjs"
	"github.com/openlabkit/scopectl/stage"
)

// serialPort adapts a local serial handle to the illuminator port.
type serialPort struct {
	*serial.Port
}

func (p serialPort) Send(data []byte) error {
	_, err := p.Write(data)
	return err
}

// logMover stands in for the stage until the vendor motor library has
// a Go binding.
// TODO: wrap the MicroDrive library with cgo and drive the real stage.
type logMover struct{}

func (logMover) Move(axis int, velocity, distance float64) error {
	log.Println("Move", axis, velocity, distance)
	return nil
}

func main() {
	log.SetFlags(log.Lshortfile)

	plcAddr := flag.String("plc", "", "Modbus-TCP address of the coil coupler (overrides config).")
	serialName := flag.String("serial", "", "Serial port of the illuminator (overrides config).")
	spjsURL := flag.String("spjs", "", "Websocket URL of an SPJS server to reach the illuminator through.")
	addr := flag.String("addr", ":9091", "Address to bind the scopectl server to.")
	cfgFile := flag.String("config", "", "Path to a YAML config file.")
	uiDir := flag.String("ui", "./ui", "Directory with the operator UI.")
	flag.Parse()

	cfg := config.Default()
	if *cfgFile != "" {
		var err error
		cfg, err = config.Load(*cfgFile)
		if err != nil {
			log.Fatal(err)
		}
	}
	if *plcAddr != "" {
		cfg.PLC.Address = *plcAddr
	}
	if *serialName != "" {
		cfg.Serial.Port = *serialName
	}
	if *spjsURL != "" {
		cfg.SPJS.URL = *spjsURL
	}

	coils, err := plc.Dial(cfg.PLC.Address)
	if err != nil {
		log.Fatal(err)
	}
	defer coils.Close()

	var port illuminator.Port
	if cfg.SPJS.URL != "" {
		sp := spjs.New(cfg.SPJS.URL)
		port = spjs.NewPort(sp, cfg.SPJS.Port, cfg.Serial.Baud)
	} else {
		p, err := serial.OpenPort(&serial.Config{Name: cfg.Serial.Port, Baud: cfg.Serial.Baud})
		if err != nil {
			log.Fatal(err)
		}
		defer p.Close()
		port = serialPort{p}
	}

	bank := outputs.NewBank(coils)
	disp := dispatch.New(bank, cfg.Catalog())
	engine := routine.NewEngine(disp, cfg.RoutineList())
	enc := stage.NewEncoder(logMover{})
	lamp := illuminator.NewSwitch(port)

	api := newAPI(disp, engine, enc, lamp, *uiDir)

	err = http.ListenAndServe(*addr, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		log.Printf("%s %s - %s", req.Method, req.URL.Path, req.RemoteAddr)
		api.ServeHTTP(w, req)
	}))
	if err != nil {
		log.Fatal(err)
	}
}
