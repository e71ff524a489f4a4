package seeder

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/mercury-net/mercury/internal/client"
)

// Config controls a seeding run.
type Config struct {
	Count            int
	AdversarialRatio float64
	Interval         time.Duration
}

// Result summarizes a seeding run.
type Result struct {
	Benign     int
	Registered int
	Duplicates int
	Failed     int
}

// Runner feeds generated inputs through a registry node: every input is
// detected, adversarial ones are submitted as antibodies.
type Runner struct {
	client *client.Client
	config Config
}

func NewRunner(c *client.Client, config Config) *Runner {
	if config.Count <= 0 {
		config.Count = 50
	}
	if config.AdversarialRatio <= 0 || config.AdversarialRatio > 1 {
		config.AdversarialRatio = 0.4
	}
	return &Runner{client: c, config: config}
}

// Run executes the seeding process. progress may be nil.
func (r *Runner) Run(progress func(done, total int)) (*Result, error) {
	gofakeit.Seed(time.Now().UnixNano())

	result := &Result{}
	for i := 0; i < r.config.Count; i++ {
		input := GenerateInput(r.config.AdversarialRatio)

		if !input.Adversarial {
			if _, err := r.client.Detect(input.Text); err != nil {
				result.Failed++
			} else {
				result.Benign++
			}
		} else {
			sub, err := r.client.Submit(input.Text, input.ThreatLabel)
			switch {
			case err != nil:
				result.Failed++
			case sub.Duplicate:
				result.Duplicates++
			default:
				result.Registered++
			}
		}

		if progress != nil {
			progress(i+1, r.config.Count)
		}
		if r.config.Interval > 0 && i < r.config.Count-1 {
			time.Sleep(r.config.Interval)
		}
	}

	if result.Failed == r.config.Count {
		return result, fmt.Errorf("all %d seed requests failed", r.config.Count)
	}
	return result, nil
}
