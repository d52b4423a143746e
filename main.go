package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"courtroomdriver/assets"
	"courtroomdriver/audio"
	"courtroomdriver/chatlog"
	"courtroomdriver/config"
	"courtroomdriver/courtroom"
	"courtroomdriver/model"
	"courtroomdriver/network"
	"courtroomdriver/pkg/pubsub"
	"courtroomdriver/pkg/scheduler"
	"courtroomdriver/sayer"
	"courtroomdriver/stage"

	"github.com/redis/go-redis/v9"
	"golang.org/x/exp/slog"
)

// KeepAliveInterval is how often the server is pinged.
var KeepAliveInterval = 45 * time.Second

var (
	configFile = flag.String("c", "config.yaml", "config file")
	genExample = flag.Bool("gen_example_config", false, "write an example config to stdout and exit")
)

func main() {
	flag.Parse()

	if *genExample {
		example := config.ExampleConfig()
		if err := example.Write(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	conf := config.UseConfig()
	if err := conf.ReadFromYaml(*configFile); err != nil {
		fmt.Fprintf(os.Stderr, "read config %s: %v\n", *configFile, err)
		os.Exit(1)
	}
	if err := conf.Check(); err != nil {
		fmt.Fprintf(os.Stderr, "bad config %s: %v\n", *configFile, err)
		os.Exit(1)
	}

	th := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: conf.GetLogLevel()})
	slog.SetDefault(slog.New(th))
	slog.Info("[main] config loaded", "file", *configFile, "config", conf.DesensitizedCopy())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("[main] exit", "err", err)
		os.Exit(1)
	}
}

// run wires everything up and blocks until ctx is done or the server
// connection is lost.
func run(ctx context.Context, conf *config.Config) error {
	loop := scheduler.NewLoop(0)

	finder, err := assets.Open(conf.Assets.Base, conf.Assets.Theme)
	if err != nil {
		return err
	}

	// views

	audioController := audio.NewController(audio.WithSrcPrefix(assetsURL(conf)))
	stageController := stage.NewController(finder, stage.WithSrcPrefix(assetsURL(conf)))

	// server link

	client, err := network.Dial(conf.Server.Addr,
		network.WithOrigin(conf.Server.Origin),
		network.WithRateLimit(conf.Server.RateLimit))
	if err != nil {
		return err
	}
	defer client.Close()

	// records

	opts := []courtroom.Option{}

	var rec *chatlog.BoltRecorder
	if conf.Log.Recording {
		rec, err = chatlog.OpenBoltRecorder(conf.Log.DBPath)
		if err != nil {
			return err
		}
		defer rec.Close()
		opts = append(opts, courtroom.WithRecorder(rec))
	}

	records := newRecordPubSub(conf.Redis)
	opts = append(opts, courtroom.WithPublisher(records))

	if enabled, err := conf.Sayer.IsEnabledAndValid(); err != nil {
		return fmt.Errorf("sayer: %w", err)
	} else if enabled {
		s, err := sayer.NewVocalSayer(conf.Sayer.Server, audioController, sayer.WithTtsRole(conf.Sayer.Role))
		if err != nil {
			return err
		}
		go sayer.ReadAloud(ctx, s, records.Subscribe(ctx))
	}

	// courtroom

	court := courtroom.New(loop, stageController, audioController, finder, client,
		model.NewRoster(), settingsFromConfig, opts...)
	stageController.OnEvent(func(e stage.Event) {
		err := loop.Post(func() {
			switch e {
			case stage.EventVideoDone:
				court.VideoDone()
			case stage.EventObjectionDone:
				court.ObjectionDone()
			case stage.EventPreanimDone:
				court.PreanimDone()
			}
		})
		if err != nil {
			slog.Warn("[main] stage event dropped", "event", e, "err", err)
		}
	})

	dispatcher := network.NewDispatcher(court, loop, client, client.HDID())

	loop.ScheduleRepeating(KeepAliveInterval, func() {
		if err := court.Ping(); err != nil {
			slog.Warn("[main] keepalive failed", "err", err)
		}
	})

	control := &controlServer{
		room:       court,
		loop:       loop,
		dispatcher: dispatcher,
		chatbox:    stageController,
		assetsDir:  conf.Assets.Base,
		startedAt:  time.Now(),
	}
	if rec != nil {
		control.recorder = rec
	}

	// serve

	loopCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	errs := make(chan error, 4)
	go serve(loopCtx, "audioview", conf.Views.AudioWs, audioController.WsHandler(), errs)
	go serve(loopCtx, "stageview", conf.Views.StageWs, stageController.WsHandler(), errs)
	go serve(loopCtx, "control", conf.Listen.ControlHttp, control.Router(), errs)
	go func() {
		errs <- dispatcher.Run(client.Packets())
	}()
	go func() {
		select {
		case err := <-errs:
			cancel(err)
		case <-loopCtx.Done():
		}
	}()

	slog.Info("[main] courtroom running", "server", conf.Server.Addr, "hdid", client.HDID())
	err = loop.Run(loopCtx)
	if cause := context.Cause(loopCtx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return err
}

// assetsURL is where the views fetch assets: the control server
// serves the assets folder.
func assetsURL(conf *config.Config) string {
	addr := conf.Listen.ControlHttp
	if strings.HasPrefix(addr, ":") || strings.HasPrefix(addr, "0.0.0.0:") {
		addr = "localhost" + addr[strings.Index(addr, ":"):]
	}
	return "http://" + addr + "/assets/"
}

// newRecordPubSub fans records out through redis when configured and
// in-process otherwise.
func newRecordPubSub(conf config.RedisConfig) pubsub.PubSub[model.ChatRecord] {
	if conf.Addr == "" {
		return pubsub.NewPubSubChan[model.ChatRecord]()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
	})
	slog.Info("[main] publishing records to redis", "addr", conf.Addr, "channel", conf.Channel)
	return pubsub.Async(pubsub.NewPubSubRedis[model.ChatRecord](conf.Channel, rdb))
}

// serve runs an http server on addr until ctx is done. An empty addr
// turns it off.
func serve(ctx context.Context, name, addr string, h http.Handler, errs chan<- error) {
	if addr == "" {
		slog.Info("[main] server disabled", "name", name)
		return
	}
	srv := &http.Server{Addr: addr, Handler: h}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("[main] listening", "name", name, "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errs <- fmt.Errorf("%s server: %w", name, err)
	}
}
