package main

import (
	"context"
	"time"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/prepstream/pkg/jobstore"
	"github.com/go-go-golems/prepstream/pkg/rediskv"
	"github.com/go-go-golems/prepstream/pkg/relay"
	"github.com/go-go-golems/prepstream/pkg/streamstate"
)

type ServeSettings struct {
	Addr                 string `glazed:"addr"`
	PollIntervalMS       int    `glazed:"poll-interval-ms"`
	StreamTimeoutSeconds int    `glazed:"stream-timeout-seconds"`
	JobsDSN              string `glazed:"jobs-dsn"`
	TokensFile           string `glazed:"tokens-file"`
}

type ServeCommand struct {
	*cmds.CommandDescription
}

var _ cmds.BareCommand = (*ServeCommand)(nil)

func NewServeCommand() (*ServeCommand, error) {
	redisLayer, err := rediskv.NewParameterLayer()
	if err != nil {
		return nil, errors.Wrap(err, "build redis layer")
	}

	desc := cmds.NewCommandDescription(
		"serve",
		cmds.WithShort("Run the stream relay HTTP server"),
		cmds.WithFlags(
			fields.New("addr", fields.TypeString, fields.WithDefault(":8088"), fields.WithHelp("HTTP listen address")),
			fields.New("poll-interval-ms", fields.TypeInteger, fields.WithDefault(200), fields.WithHelp("Tail poll interval in milliseconds")),
			fields.New("stream-timeout-seconds", fields.TypeInteger, fields.WithDefault(300), fields.WithHelp("Hard ceiling for a single resume response")),
			fields.New("jobs-dsn", fields.TypeString, fields.WithDefault("prepstream-jobs.db"), fields.WithHelp("SQLite DSN for the job ownership table")),
			fields.New("tokens-file", fields.TypeString, fields.WithDefault(""), fields.WithHelp("YAML file mapping bearer tokens to user ids")),
		),
		cmds.WithSections(redisLayer),
	)
	return &ServeCommand{CommandDescription: desc}, nil
}

func (c *ServeCommand) Run(ctx context.Context, parsedLayers *values.Values) error {
	s := &ServeSettings{}
	if err := parsedLayers.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "init serve settings")
	}
	rs := rediskv.Settings{}
	if err := parsedLayers.DecodeSectionInto("redis", &rs); err != nil {
		return errors.Wrap(err, "init redis settings")
	}

	store, err := rediskv.BuildStore(rs)
	if err != nil {
		return errors.Wrap(err, "build stream store")
	}
	registry := streamstate.NewRegistry(store)
	buffer := streamstate.NewBuffer(store)

	jobs, err := jobstore.NewSQLiteJobStore(s.JobsDSN)
	if err != nil {
		return errors.Wrap(err, "open job store")
	}
	defer func() { _ = jobs.Close() }()

	var tokens map[string]string
	if s.TokensFile != "" {
		tokens, err = relay.LoadStaticTokens(s.TokensFile)
		if err != nil {
			return errors.Wrap(err, "load tokens")
		}
	} else {
		log.Warn().Msg("no tokens file configured, using the dev-token/dev-user credential")
		tokens = map[string]string{"dev-token": "dev-user"}
	}

	cfg := relay.Config{
		Addr:              s.Addr,
		PollInterval:      time.Duration(s.PollIntervalMS) * time.Millisecond,
		MaxStreamDuration: time.Duration(s.StreamTimeoutSeconds) * time.Second,
		Registry:          registry,
		Buffer:            buffer,
		Jobs:              jobs,
		Auth:              relay.NewStaticTokenAuthenticator(tokens),
	}
	if waker := rediskv.BuildWaker(rs); waker != nil {
		cfg.Waker = waker
	}

	srv, err := relay.NewServer(cfg)
	if err != nil {
		return errors.Wrap(err, "build relay server")
	}
	return srv.Run(ctx)
}
