package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/asdine/storm"
	"github.com/caarlos0/env"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/rehagrip/rehagrip/motor"
)

type EnvConfig struct {
	JWT_ISSUER  string `env:"REHAGRIP_DEVICE_ID" envDefault:"DEV"`
	JWT_SECRET  string `env:"JWT_SECRET" envDefault:"xWumOlRfhu+LBi2F2e1yF4FiaopQ5mr8klL4fpILnlI="`
	DEBUG       bool   `env:"DEBUG" envDefault:"0"`
	DATADIR     string `env:"DATADIR" envDefault:"./tmp"`
	HTMLDIR     string `env:"HTMLDIR" envDefault:"./frontend/dist/"`
	PRESET_FILE string `env:"PRESET_FILE"`
	DB          *storm.DB
	Simulated   bool
}

var (
	ENV *EnvConfig
)

func init() {
	ENV = new(EnvConfig)
	env.Parse(ENV)
}

func main() {
	simulated := flag.Bool("sim", false, "Run the device in simulator mode")
	port := flag.String("port", "0.0.0.0:3001", "Specify the ip:port to listen on")
	configFile := flag.String("config", "./rehagrip.yaml", "Device config file")
	flag.Parse()

	ENV.Simulated = *simulated

	// user database
	dbFile := filepath.Join(ENV.DATADIR, "live.db")
	if err := os.MkdirAll(filepath.Dir(dbFile), 0755); err != nil {
		panic(err)
	}
	db, err := openDb(dbFile)
	if err != nil {
		panic(err)
	}
	ENV.DB = db
	defer ENV.DB.Close()

	// device config
	config, err := motor.LoadConfig(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Unable to load device config: %v", err))
	}

	// hardware or simulator
	var driver motor.Driver
	if ENV.Simulated {
		println("Creating simulator")
		driver = motor.NewSimDriver()
	} else {
		driver, err = motor.NewDynamixelDriver(config.Serial)
		if err != nil {
			panic(fmt.Sprintf("Unable to open servo: %v", err))
		}
	}
	defer driver.Close()

	ctrl, err := motor.NewController(config, driver)
	if err != nil {
		panic(fmt.Sprintf("Unable to initialize controller: %v", err))
	}

	presetPath := ENV.PRESET_FILE
	if presetPath == "" {
		presetPath = motor.DefaultPresetPath()
	}
	presets, err := motor.NewPresetStore(presetPath)
	if err != nil {
		panic(fmt.Sprintf("Unable to load presets: %v", err))
	}
	fmt.Printf("Loaded %d presets from %s\n", len(presets.List()), presets.Path())

	api := &MotorAPI{Ctrl: ctrl, Presets: presets}

	// motion loop
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	// local dev shell
	go newShell(api).Start()

	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Recoverer) // make sure this is last

	//---
	// Build the API routes
	//---
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", Login)

		r.Group(func(r chi.Router) {
			if !ENV.DEBUG {
				r.Use(ValidateJWT)
			} else {
				fmt.Println("Running in debug mode. Authentication disabled.")
			}

			r.Get("/refresh_token", JWTRefresh)
			r.Mount("/motor", api.Routes())
		})
	})

	// Add websocket routes
	r.Route("/ws", func(r chi.Router) {
		r.Get("/echo", EchoHandler)
		r.Get("/status", api.StatusStream)
	})

	// add static base routes
	FileServer(r, "/", http.Dir(ENV.HTMLDIR))

	fmt.Println("Listening on port", *port)
	if err := http.ListenAndServe(*port, r); err != nil {
		log.Fatal(err)
	}
}

func openDb(dbFile string) (db *storm.DB, err error) {
	db, err = storm.Open(dbFile)
	if err != nil {
		return
	}

	// call inits for each type
	if err := db.Init(&User{}); err != nil {
		return nil, err
	}

	return
}

// FileServer conveniently sets up a http.FileServer handler to serve
// static files from a http.FileSystem.
func FileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("FileServer does not permit URL parameters.")
	}

	fs := http.StripPrefix(path, http.FileServer(root))

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", 301).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.ServeHTTP(w, r)
	}))
}
