package streamstate

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ScenarioStep appends one chunk of content, optionally after a pause.
type ScenarioStep struct {
	Append  string `yaml:"append"`
	DelayMS int    `yaml:"delay_ms"`
}

// Scenario is a scripted producer run: a module name, a sequence of appends,
// and the terminal status to report at the end. Used by the produce command
// to exercise the relay without the real generation pipeline.
type Scenario struct {
	Module string         `yaml:"module"`
	Steps  []ScenarioStep `yaml:"steps"`
	Final  StreamStatus   `yaml:"final"`
}

func LoadScenario(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scenario file")
	}
	sc := &Scenario{}
	if err := yaml.Unmarshal(b, sc); err != nil {
		return nil, errors.Wrap(err, "parse scenario yaml")
	}
	if sc.Module == "" {
		return nil, errors.New("scenario: module is required")
	}
	if sc.Final == "" {
		sc.Final = StatusCompleted
	}
	if !sc.Final.Terminal() {
		return nil, errors.Errorf("scenario: final status %q is not terminal", sc.Final)
	}
	return sc, nil
}

// Run plays the scenario against p for the given job, returning the stream id.
func (sc *Scenario) Run(ctx context.Context, p Producer, jobID, userID string) (string, error) {
	key := OwnerKey{JobID: jobID, Module: sc.Module}
	streamID, err := p.Start(ctx, key, userID)
	if err != nil {
		return "", err
	}
	for _, step := range sc.Steps {
		if step.DelayMS > 0 {
			select {
			case <-ctx.Done():
				return streamID, ctx.Err()
			case <-time.After(time.Duration(step.DelayMS) * time.Millisecond):
			}
		}
		if step.Append == "" {
			continue
		}
		if err := p.Append(ctx, key, step.Append); err != nil {
			return streamID, err
		}
	}
	return streamID, p.MarkStatus(ctx, key, sc.Final)
}
