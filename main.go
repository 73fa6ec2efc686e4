package main

import (
	"os"
	"os/signal"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kylycht/curconv/controller/converter"
	"github.com/kylycht/curconv/service/convert"
	"github.com/kylycht/curconv/service/directory"
	"github.com/kylycht/curconv/service/oer"
	"github.com/kylycht/curconv/service/xe"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

func main() {
	content, err := os.ReadFile("config.yaml")
	if err != nil {
		log.Error().Err(err).Msg("unable to read configuration file")
		os.Exit(1)
	}

	cfg := Config{}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		log.Error().Err(err).Msg("unable to read configuration file")
		os.Exit(1)
	}

	if err := New(cfg); err != nil {
		log.Error().Err(err).Msg("unable to initialize application")
		os.Exit(1)
	}
}

func New(cfg Config) error {
	a := Application{cfg: cfg}
	return a.init()
}

type Application struct {
	cfg      Config           // application configuration
	fiberApp *fiber.App       // underlying fiber application
	svc      *convert.Service // conversion orchestrator
	stopC    chan os.Signal   // handle interrupt for clean up
}

func (a *Application) init() error {
	a.fiberApp = fiber.New()
	a.stopC = make(chan os.Signal)
	signal.Notify(a.stopC, os.Interrupt)

	if a.cfg.CurrenciesExpiration <= 0 {
		a.cfg.CurrenciesExpiration = 1440
	}
	if a.cfg.RatesExpiration <= 0 {
		a.cfg.RatesExpiration = 60
	}
	if a.cfg.CacheDir == "" {
		a.cfg.CacheDir = "."
	}

	dir, err := directory.New(
		directory.DefaultURL,
		a.cfg.CacheDir,
		time.Duration(a.cfg.CurrenciesExpiration)*time.Minute,
	)
	if err != nil {
		log.Error().Err(err).Msg("unable to create currency directory")
		return err
	}

	xeClient, err := xe.New(xe.DefaultURL)
	if err != nil {
		log.Error().Err(err).Msg("unable to create xe client")
		return err
	}

	oerClient, err := oer.New(
		oer.DefaultURL,
		a.cfg.OERAPIKey,
		a.cfg.CacheDir,
		time.Duration(a.cfg.RatesExpiration)*time.Minute,
	)
	if err != nil {
		log.Error().Err(err).Msg("unable to create oer client")
		return err
	}

	var journal *convert.Journal
	if a.cfg.JournalFile != "" {
		if journal, err = convert.NewJournal(a.cfg.JournalFile); err != nil {
			log.Error().Err(err).Msg("unable to open conversion journal")
			return err
		}
	}

	a.svc = convert.New(dir, xeClient, oerClient, a.cfg.Method, a.cfg.OverrideCurrencies, journal)
	a.buildRoutes()
	go a.stop()
	log.Debug().Msg("preparing fiber http server")

	if err := a.fiberApp.Listen(a.cfg.HTTPPort); err != nil {
		log.Error().Err(err).Msg("unable to start http server")
	}

	return nil
}

func (a *Application) buildRoutes() {
	ctrl := converter.New(a.svc)
	a.fiberApp.Get("/convert", ctrl.Convert)
	a.fiberApp.Get("/currencies", ctrl.Currencies)
}

func (a *Application) stop() {
	<-a.stopC
	a.fiberApp.Shutdown()
	os.Exit(0)
}
