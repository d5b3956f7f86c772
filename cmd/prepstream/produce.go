package main

import (
	"context"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/prepstream/pkg/jobstore"
	"github.com/go-go-golems/prepstream/pkg/rediskv"
	"github.com/go-go-golems/prepstream/pkg/streamstate"
)

type ProduceSettings struct {
	Scenario string `glazed:"scenario"`
	JobID    string `glazed:"job-id"`
	UserID   string `glazed:"user-id"`
	JobsDSN  string `glazed:"jobs-dsn"`
}

// ProduceCommand plays a scripted scenario into the stream store, standing in
// for the real generation pipeline when testing the relay end to end.
type ProduceCommand struct {
	*cmds.CommandDescription
}

var _ cmds.BareCommand = (*ProduceCommand)(nil)

func NewProduceCommand() (*ProduceCommand, error) {
	redisLayer, err := rediskv.NewParameterLayer()
	if err != nil {
		return nil, errors.Wrap(err, "build redis layer")
	}

	desc := cmds.NewCommandDescription(
		"produce",
		cmds.WithShort("Play a scripted producer scenario against the stream store"),
		cmds.WithArguments(
			fields.New("scenario", fields.TypeString, fields.WithHelp("Path to the scenario yaml")),
		),
		cmds.WithFlags(
			fields.New("job-id", fields.TypeString, fields.WithDefault("demo-job"), fields.WithHelp("Job id to stream under")),
			fields.New("user-id", fields.TypeString, fields.WithDefault("dev-user"), fields.WithHelp("Owning user id")),
			fields.New("jobs-dsn", fields.TypeString, fields.WithDefault("prepstream-jobs.db"), fields.WithHelp("SQLite DSN for the job ownership table")),
		),
		cmds.WithSections(redisLayer),
	)
	return &ProduceCommand{CommandDescription: desc}, nil
}

func (c *ProduceCommand) Run(ctx context.Context, parsedLayers *values.Values) error {
	s := &ProduceSettings{}
	if err := parsedLayers.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "init produce settings")
	}
	rs := rediskv.Settings{}
	if err := parsedLayers.DecodeSectionInto("redis", &rs); err != nil {
		return errors.Wrap(err, "init redis settings")
	}

	sc, err := streamstate.LoadScenario(s.Scenario)
	if err != nil {
		return err
	}

	store, err := rediskv.BuildStore(rs)
	if err != nil {
		return errors.Wrap(err, "build stream store")
	}
	if !rs.Enabled {
		log.Warn().Msg("redis disabled: a relay in another process will not see this stream")
	}
	registry := streamstate.NewRegistry(store)
	buffer := streamstate.NewBuffer(store)

	var opts []streamstate.StateProducerOption
	notifier, err := rediskv.BuildNotifier(rs)
	if err != nil {
		return errors.Wrap(err, "build notifier")
	}
	if notifier != nil {
		defer func() { _ = notifier.Close() }()
		opts = append(opts, streamstate.WithNotifier(notifier))
	}
	producer := streamstate.NewStateProducer(registry, buffer, opts...)

	// Make sure the job exists so resume requests pass the ownership check.
	jobs, err := jobstore.NewSQLiteJobStore(s.JobsDSN)
	if err != nil {
		return errors.Wrap(err, "open job store")
	}
	defer func() { _ = jobs.Close() }()
	if _, err := jobs.GetJob(ctx, s.JobID); errors.Is(err, jobstore.ErrNotFound) {
		if err := jobs.CreateJob(ctx, jobstore.Job{ID: s.JobID, UserID: s.UserID, Title: "scenario job"}); err != nil {
			return errors.Wrap(err, "create job")
		}
	} else if err != nil {
		return errors.Wrap(err, "look up job")
	}

	streamID, err := sc.Run(ctx, producer, s.JobID, s.UserID)
	if err != nil {
		return errors.Wrap(err, "run scenario")
	}
	log.Info().
		Str("job_id", s.JobID).
		Str("module", sc.Module).
		Str("stream_id", streamID).
		Str("final", string(sc.Final)).
		Msg("scenario complete")
	return nil
}
