package main

import (
	"log"

	"github.com/felixlab/polysin/ai"
	"github.com/felixlab/polysin/api"
	"github.com/felixlab/polysin/api/handlers"
	"github.com/felixlab/polysin/communication"
	"github.com/felixlab/polysin/config"
	"github.com/felixlab/polysin/core"
	"github.com/felixlab/polysin/engine"
	"github.com/felixlab/polysin/questions"
	"github.com/felixlab/polysin/storage"
	"github.com/felixlab/polysin/traits"
)

func main() {
	cfg := config.Load()

	store, err := traits.OpenFileStore(cfg.LibraryPath, traits.SeedLibrary())
	if err != nil {
		log.Fatalf("Failed to open trait library: %v", err)
	}
	log.Printf("Trait library loaded with %d traits", len(store.Snapshot().Traits))

	oracleCfg := ai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OracleModel != "" {
		oracleCfg.Model = cfg.OracleModel
	}
	oracle, err := ai.NewOpenAIOracle(oracleCfg)
	if err != nil {
		log.Fatalf("Failed to build oracle: %v", err)
	}

	history, err := storage.OpenHistory(storage.DefaultConfig(cfg.DataDir))
	if err != nil {
		log.Fatalf("Failed to open history store: %v", err)
	}
	defer history.Close()

	bus, err := communication.ConnectBus(cfg.NATSURL)
	if err != nil {
		log.Fatalf("Failed to connect event bus: %v", err)
	}
	defer bus.Close()

	ws := communication.NewWSManager()

	orchestrator := engine.NewOrchestrator(store, oracle,
		engine.WithHistory(history),
		engine.WithEvents(communication.NewNotifier(ws, bus)),
		engine.WithOracleTimeout(cfg.OracleTimeout),
	)

	var bank *questions.Bank
	if bank, err = questions.LoadBank(cfg.QuestionsPath); err != nil {
		log.Printf("Warning: question bank unavailable: %v", err)
		bank = nil
	}

	h := &handlers.Handler{
		Orchestrator:  orchestrator,
		Bank:          bank,
		History:       history,
		WS:            ws,
		QuestionCount: cfg.QuestionCount,
		Version:       core.LibraryVersion,
	}

	log.Printf("Felix listening on %s", cfg.ListenAddr)
	if err := api.StartServer(cfg.ListenAddr, h); err != nil {
		log.Fatalf("API server exited: %v", err)
	}
}
