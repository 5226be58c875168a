package main

import (
	"context"
	"errors"

	bookinghandler "metro/internal/bookings/handler"
	"metro/internal/bookings/events"
	"metro/internal/bookings/ledger"
	bookingservice "metro/internal/bookings/service"
	"metro/internal/bookings/validator"
	"metro/internal/network"
	"metro/internal/routing/fare"
	routinghandler "metro/internal/routing/handler"
	routingservice "metro/internal/routing/service"
	"metro/pkg/app"
	"metro/pkg/config"
	"metro/pkg/kafka"
	kafka_config "metro/pkg/kafka/config"
	kafka_middleware "metro/pkg/kafka/middleware"
)

const ServiceName = "metro"

func main() {
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting Metro service")
	newServer(cfg).Run()
}

// newServer wires the routing and booking services behind one application.
func newServer(cfg *config.Config) *app.Application {
	serverApp := app.NewApplication(cfg)

	topology := loadTopology(cfg)
	routes := initRouting(cfg, topology, serverApp)
	bookings := initBookings(cfg, routes, serverApp)

	serverApp.SetApp(
		routinghandler.NewRoutingHandler(routes, cfg.Log),
		bookinghandler.NewBookingHandler(bookings, cfg.Log),
	)
	return serverApp
}

func loadTopology(cfg *config.Config) *network.Topology {
	var (
		topology *network.Topology
		err      error
	)
	if cfg.NetworkFile != "" {
		topology, err = network.Load(cfg.NetworkFile)
	} else {
		topology, err = network.Default()
	}
	if err != nil {
		cfg.Log.Fatal("Failed to load network topology", "file", cfg.NetworkFile, "error", err)
	}
	return topology
}

func initRouting(cfg *config.Config, topology *network.Topology, serverApp *app.Application) routingservice.RoutingService {
	g, err := topology.Build()
	if err != nil {
		cfg.Log.Fatal("Failed to build network graph", "error", err)
	}

	serverApp.AddReadinessCheck("network", func(context.Context) error {
		if g.VertexCount() == 0 {
			return errors.New("network graph has no stations")
		}
		return nil
	})

	fares := fare.Model{
		PerHopMinutes: cfg.MinutesPerHop,
		BaseFare:      cfg.FareBase,
		PerHopFare:    cfg.FarePerHop,
	}

	cfg.Log.Info("Routing service initialized",
		"network", topology.Name,
		"stations", g.VertexCount(),
		"edges", g.EdgeCount(),
	)
	return routingservice.NewRoutingService(topology.Name, g, topology.Directory(), fares, cfg.Log)
}

func initBookings(cfg *config.Config, routes routingservice.RoutingService, serverApp *app.Application) bookingservice.BookingService {
	seats, err := ledger.New(cfg.TotalSeats)
	if err != nil {
		cfg.Log.Fatal("Failed to create booking ledger", "error", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	var metrics *kafka_middleware.Metrics
	var kafkaCfg *kafka_config.Config
	if cfg.KafkaEnabled {
		kafkaCfg, err = kafka_config.Load()
		if err != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
		}
		kafkaCfg.LogConfiguration(cfg.Log.Info)

		producer, err := kafka.NewProducer(kafkaCfg, cfg.Log, cfg.KafkaBookingTopic, cfg.KafkaDLQTopic)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		metrics = &kafka_middleware.Metrics{}
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(metrics.ProducerMiddleware())
		serverApp.AddCloser(producer.Close)

		publisher = events.NewKafkaPublisher(producer)
	}

	bookingService := bookingservice.NewBookingService(
		seats,
		routes,
		validator.NewBookingValidator(cfg.Log),
		publisher,
		cfg,
	)

	if cfg.KafkaEnabled {
		consumer, err := kafka.NewConsumer(
			kafkaCfg,
			cfg.Log,
			cfg.KafkaReleaseTopic,
			cfg.KafkaGroupID,
			cfg.KafkaDLQTopic,
			events.ReleaseCommandHandler(bookingService, cfg.Log),
		)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
		}
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(metrics.ConsumerMiddleware())
		serverApp.AddWorker("release-consumer", consumer.Start)
		serverApp.AddCloser(func() error {
			cfg.Log.Info("Kafka metrics at shutdown", "metrics", metrics.Snapshot())
			return consumer.Close()
		})
	}

	cfg.Log.Info("Booking service initialized",
		"total_seats", cfg.TotalSeats,
		"kafka_enabled", cfg.KafkaEnabled,
	)
	return bookingService
}
