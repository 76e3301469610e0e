package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/coursework/internal/events"
	"github.com/pavelanni/coursework/internal/handler"
	"github.com/pavelanni/coursework/internal/i18n"
	"github.com/pavelanni/coursework/internal/journal"
	"github.com/pavelanni/coursework/internal/model"
	"github.com/pavelanni/coursework/internal/ops"
	"github.com/pavelanni/coursework/internal/protocol"
	"github.com/pavelanni/coursework/internal/server"
	"github.com/pavelanni/coursework/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "coursework",
		Short: "Homework submission and grading server",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `coursework --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the coursework API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "TCP listen address")
	f.String("users-file", "users.json", "Accounts collection file")
	f.String("homeworks-file", "homeworks.json", "Assignments collection file")
	f.StringP("lang", "l", "en", "Default message language (en, zh)")
	f.Duration("idle-timeout", 0, "Close connections idle this long (0 = never)")
	f.Int("max-request-bytes", 1<<20, "Maximum size of one buffered request")
	f.Bool("hash-passwords", false, "Store bcrypt hashes for new and edited passwords")
	f.Bool("validate-scores", false, "Reject grades outside 0..100")
	f.String("journal-db", "", "SQLite request journal path (empty = disabled)")
	f.StringSlice("kafka-brokers", nil, "Kafka brokers for domain events (empty = disabled)")
	f.String("kafka-topic", "coursework.events", "Kafka topic for domain events")
	f.String("ops-addr", "", "Operator HTTP endpoint address (empty = disabled)")
	addLogFlags(f.String)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the gradebook as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("users-file", "users.json", "Accounts collection file")
	f.String("homeworks-file", "homeworks.json", "Assignments collection file")
	f.Int64("course-id", model.AllCourses, "Only export this course (-1 = all)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f.String)
	return cmd
}

func addLogFlags(str func(name, value, usage string) *string) {
	str("log-level", "info", "Log level (debug, info, warn, error)")
	str("log-format", "text", "Log format (text, json)")
	str("log-file", "", "Also append log records to this file")
}

// setupLogging builds the logger from the command's flags. The returned
// function closes the log file, if any.
func setupLogging(v *viper.Viper) (*slog.Logger, func(), error) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	closeLog := func() {}
	if path := v.GetString("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
		closeLog = func() { f.Close() }
	}

	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(out, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(out, handlerOpts)
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)
	return logger, closeLog, nil
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("COURSEWORK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("coursework")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/coursework")
	v.AddConfigPath("/etc/coursework")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	log, closeLog, err := setupLogging(v)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg := model.ServerConfig{
		Lang:            v.GetString("lang"),
		IdleTimeout:     v.GetDuration("idle-timeout"),
		MaxRequestBytes: v.GetInt("max-request-bytes"),
		HashPasswords:   v.GetBool("hash-passwords"),
		ValidateScores:  v.GetBool("validate-scores"),
	}

	db, err := store.New(v.GetString("users-file"), v.GetString("homeworks-file"), log)
	if err != nil {
		return fmt.Errorf("open collections: %w", err)
	}

	msgs, err := i18n.New(cfg.Lang, log)
	if err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	var pub events.Publisher = events.Nop{}
	if brokers := v.GetStringSlice("kafka-brokers"); len(brokers) > 0 {
		producer, err := events.NewProducer(events.Config{
			Brokers: brokers,
			Topic:   v.GetString("kafka-topic"),
		}, log)
		if err != nil {
			return fmt.Errorf("create event producer: %w", err)
		}
		pub = producer
		log.Info("publishing domain events", "brokers", brokers, "topic", v.GetString("kafka-topic"))
	}
	defer func() {
		if err := pub.Close(); err != nil {
			log.Warn("failed to close event producer", "error", err)
		}
	}()

	var requestLog ops.RequestLog
	var extra []protocol.Middleware
	if path := v.GetString("journal-db"); path != "" {
		j, err := journal.New(path)
		if err != nil {
			return fmt.Errorf("open request journal: %w", err)
		}
		defer j.Close()
		extra = append(extra, j.Middleware(log))
		requestLog = j
		log.Info("recording requests", "journal", path)
	}

	r := buildRouter(msgs, log, extra...)
	h := handler.New(db, msgs, pub, cfg, log)
	h.Routes(r)

	srv := server.New(r, cfg, msgs.T, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := v.GetString("addr")
	log.Info("starting server",
		"addr", addr,
		"users_file", v.GetString("users-file"),
		"homeworks_file", v.GetString("homeworks-file"),
		"lang", cfg.Lang,
		"routes", r.Paths(),
		"idle_timeout", cfg.IdleTimeout,
		"hash_passwords", cfg.HashPasswords,
		"validate_scores", cfg.ValidateScores,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	running := 1
	go func() { errCh <- srv.ListenAndServe(ctx, addr) }()
	if opsAddr := v.GetString("ops-addr"); opsAddr != "" {
		opsHandler := ops.New(srv, requestLog, log)
		running++
		go func() { errCh <- ops.Serve(ctx, opsAddr, opsHandler.Router(), log) }()
	}

	// The first listener to stop takes the other one down with it.
	var firstErr error
	for range running {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
		cancel()
	}
	return firstErr
}

// buildRouter wires the shared middleware chain. The localizer is installed
// first so recovered panics are reported in the client's language.
func buildRouter(msgs *i18n.Catalog, log *slog.Logger, extra ...protocol.Middleware) *protocol.Router {
	r := protocol.NewRouter(msgs.T)
	r.Use(msgs.Middleware(), protocol.Recoverer(log, msgs.T), protocol.Logger(log))
	r.Use(extra...)
	return r
}

func runExport(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	log, closeLog, err := setupLogging(v)
	if err != nil {
		return err
	}
	defer closeLog()

	usersPath, homeworksPath := v.GetString("users-file"), v.GetString("homeworks-file")
	for _, p := range []string{usersPath, homeworksPath} {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("collection file %s does not exist", p)
			}
			return fmt.Errorf("stat %s: %w", p, err)
		}
	}

	db, err := store.New(usersPath, homeworksPath, log)
	if err != nil {
		return fmt.Errorf("open collections: %w", err)
	}

	gradebook := db.ExportGradebook(v.GetInt64("course-id"))

	data, err := json.MarshalIndent(gradebook, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	log.Info("exported gradebook", "assignments", len(gradebook.Assignments))
	return nil
}
