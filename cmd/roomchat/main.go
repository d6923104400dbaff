package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Nishan666/roomchat/internal/api"
	"github.com/Nishan666/roomchat/internal/chat"
	"github.com/Nishan666/roomchat/internal/config"
	"github.com/Nishan666/roomchat/internal/events"
	"github.com/Nishan666/roomchat/internal/media"
	"github.com/Nishan666/roomchat/internal/notify"
	"github.com/Nishan666/roomchat/internal/rooms"
	"github.com/Nishan666/roomchat/internal/session"
	"github.com/Nishan666/roomchat/internal/store"
	"github.com/Nishan666/roomchat/internal/utils"
	"github.com/Nishan666/roomchat/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	logger, err := utils.NewLogger(cfg.App.Env == "dev")
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Sync()

	mc, err := store.NewMongoClient(cfg.Mongo.URI)
	if err != nil {
		logger.Fatal("mongo init", zap.Error(err))
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()
	db := mc.Database(cfg.Mongo.Database)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	msgStore := store.NewMessageStore(db, logger)
	roomRepo := rooms.NewRepository(db)

	pusher := notify.NewFCMClient(cfg.FCM.Endpoint, cfg.FCM.ServerKey, cfg.FCMTimeout)
	fanout := notify.NewFanout(roomRepo, pusher, logger)
	inbox := notify.NewInbox(db, roomRepo, logger)

	producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicMessageSent)
	defer producer.Close()

	sender := chat.NewSender(msgStore, fanout, producer, logger)
	sessions := session.NewFactory(rdb, cfg.Redis.Prefix, logger)
	hub := ws.NewHub()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicMessageSent, cfg.Kafka.ConsumerGroup, inbox, logger)
	defer consumer.Close()
	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("consumer stopped", zap.Error(err))
		}
	}()

	var mediaSvc *media.Service
	if cfg.S3.Bucket != "" {
		s3store, err := media.NewS3Store(ctx, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.PublicRead)
		if err != nil {
			logger.Fatal("s3 init", zap.Error(err))
		}
		mediaSvc = media.NewService(s3store, logger)
	}

	app := api.NewServer(cfg, logger, roomRepo, msgStore, sender, inbox, mediaSvc, hub, sessions)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		_ = app.Shutdown()
	}()

	addr := ":" + strconv.Itoa(cfg.App.Port)
	logger.Info("listening", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		logger.Fatal("server exit", zap.Error(err))
	}
}
