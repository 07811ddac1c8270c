package server

import (
	"log/slog"
	"pdfcrop/app/api"
	"pdfcrop/app/middleware"
	"pdfcrop/filestore"
	"pdfcrop/store"
	"pdfcrop/types"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Server struct {
	cfg     types.Config
	app     *fiber.App
	presets store.PresetStorer
	logger  *slog.Logger
}

func NewServer(cfg types.Config, presets store.PresetStorer, files *filestore.Store) *Server {
	return &Server{
		cfg:     cfg,
		app:     NewApp(cfg, presets, files),
		presets: presets,
		logger:  slog.Default(),
	}
}

// NewApp wires the routes. presets may be nil, in which case the preset
// endpoints are not mounted.
func NewApp(cfg types.Config, presets store.PresetStorer, files *filestore.Store) *fiber.App {
	var (
		app = fiber.New(fiber.Config{
			ErrorHandler: api.ErrorHandler,
			BodyLimit:    cfg.MaxUploadSize,
		})
		checkHandler = api.NewCheckHandler(presets)
		fileHandler  = api.NewFileHandler(files, presets, cfg.DefaultMargin)
	)

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(slog.Default()))
	app.Use(middleware.PlugStatic("/"))

	check := app.Group("/check")
	check.Get("/healthy", checkHandler.HandleHealthy)

	apiv1 := app.Group("/api/v1")
	apiv1.Post("/crop", fileHandler.HandleCrop)

	if presets != nil {
		presetHandler := api.NewPresetHandler(presets)
		apiv1.Get("/presets", presetHandler.HandleListPresets)
		apiv1.Post("/presets", presetHandler.HandleSetPreset)
		apiv1.Get("/presets/:name", presetHandler.HandleGetPreset)
		apiv1.Delete("/presets/:name", presetHandler.HandleDeletePreset)
	}

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	return app
}

// Run blocks until the listener stops.
func (s *Server) Run() error {
	s.logger.Info("server starting", "addr", s.cfg.ListenAddr)
	if err := s.app.Listen(s.cfg.ListenAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
		return err
	}
	return nil
}

func (s *Server) Stop() {
	if err := s.app.Shutdown(); err != nil {
		s.logger.Error("error to stop server", "error", err.Error())
	}
	if s.presets != nil {
		if err := s.presets.Close(); err != nil {
			s.logger.Error("error to close preset store", "error", err.Error())
		}
	}
	s.logger.Info("server stopped")
}
