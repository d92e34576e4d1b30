package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/bahodir0902/blogclient/adapters/api"
	"github.com/bahodir0902/blogclient/adapters/events"
	"github.com/bahodir0902/blogclient/adapters/store"
	"github.com/bahodir0902/blogclient/ports"
	"github.com/bahodir0902/blogclient/realtime"
	"github.com/bahodir0902/blogclient/session"
	"github.com/bahodir0902/blogclient/transport"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	identifier := flag.String("identifier", "", "email or username to log in with")
	secret := flag.String("secret", "", "password for -identifier")
	logout := flag.Bool("logout", false, "end the stored session and exit")
	flag.Parse()

	if err := run(logger, *identifier, *secret, *logout); err != nil {
		logger.Fatal().Err(err).Msg("blogclient failed")
	}
}

func run(logger zerolog.Logger, identifier, secret string, logout bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiURL := envOr("BLOGCLIENT_API_URL", "http://localhost:9000")
	wsURL := envOr("BLOGCLIENT_WS_URL", "ws://localhost:9000/ws")

	credentials, publisher, subscriber, err := buildInfra(logger)
	if err != nil {
		return err
	}

	client := api.NewClient(apiURL, http.DefaultClient)

	manager, err := session.NewManager(ctx, session.LoadConfigFromEnv(), client, credentials,
		events.NewWatermillPublisher(publisher), session.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to initialize session: %w", err)
	}
	defer manager.Close()

	if logout {
		if err := manager.Logout(ctx); err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}
		logger.Info().Msg("session ended")
		return nil
	}

	if !manager.Authenticated() {
		if identifier == "" || secret == "" {
			return errors.New("no stored session: pass -identifier and -secret to log in")
		}
		if err := login(ctx, manager, identifier, secret); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		logger.Info().Str("identifier", identifier).Msg("logged in")
	} else {
		logger.Info().Msg("resumed stored session")
	}

	// Platform calls ride the session: the transport injects the current
	// access credential on every request.
	authed := &http.Client{Transport: transport.NewBearerTransport(credentials, nil)}
	profile, err := api.NewClient(apiURL, authed).Profile(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}
	logger.Info().Str("id", profile.ID).Str("email", profile.Email).Str("role", profile.Role).Msg("profile")

	channel := realtime.NewChannel(realtime.Config{URL: wsURL}, credentials, subscriber,
		func(payload []byte) { fmt.Println(string(payload)) },
		realtime.WithLogger(logger))

	logger.Info().Str("url", wsURL).Msg("streaming notifications, ^C to stop")
	if err := channel.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// buildInfra picks the credential store and the event bus. With
// BLOGCLIENT_REDIS_URL set, both live in Redis so several processes can share
// one session; otherwise credentials go to a local file and events stay
// in-process.
func buildInfra(logger zerolog.Logger) (ports.CredentialStore, message.Publisher, message.Subscriber, error) {
	wmLogger := watermill.NewStdLogger(false, false)

	if redisURL := os.Getenv("BLOGCLIENT_REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to parse BLOGCLIENT_REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: client}, wmLogger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create redis publisher: %w", err)
		}
		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        client,
			ConsumerGroup: "blogclient",
		}, wmLogger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create redis subscriber: %w", err)
		}

		logger.Debug().Msg("using redis-backed session store")
		return store.NewRedisStore(client, ""), publisher, subscriber, nil
	}

	path := os.Getenv("BLOGCLIENT_CREDENTIALS_FILE")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to locate home directory: %w", err)
		}
		path = filepath.Join(home, ".blogclient", "credentials.json")
	}

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
	logger.Debug().Str("path", path).Msg("using file-backed session store")
	return store.NewFileStore(path), pubsub, pubsub, nil
}

func login(ctx context.Context, manager *session.Manager, identifier, secret string) error {
	result, err := manager.Login(ctx, identifier, secret)
	if err != nil {
		return err
	}
	if !result.ChallengeRequired {
		return nil
	}

	fmt.Fprint(os.Stderr, "one-time code: ")
	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read one-time code: %w", err)
	}

	_, err = manager.LoginOTP(ctx, result.ChallengeToken, strings.TrimSpace(code))
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
