package seeder

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"

	"github.com/mercury-net/mercury/internal/detect"
)

func TestGenerateInput(t *testing.T) {
	gofakeit.Seed(7)
	detector := detect.New()

	t.Run("ratio 1 is always adversarial", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			input := GenerateInput(1.0)
			assert.True(t, input.Adversarial)
			assert.NotEmpty(t, input.Text)
			assert.NotEmpty(t, input.ThreatLabel)
			assert.True(t, detector.Detect(input.Text).Suspicious(),
				"adversarial input should trip the detector: %q", input.Text)
		}
	})

	t.Run("ratio 0 is always benign", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			input := GenerateInput(0)
			assert.False(t, input.Adversarial)
			assert.Empty(t, input.ThreatLabel)
			assert.NotEmpty(t, input.Text)
		}
	})
}

func TestPoisoningTextLength(t *testing.T) {
	gofakeit.Seed(7)
	for i := 0; i < 10; i++ {
		text := poisoningText()
		assert.Greater(t, len(text), detect.DefaultMaxInputLength)
	}
}

func TestInjectionTextContainsTrigger(t *testing.T) {
	gofakeit.Seed(7)
	detector := detect.New()
	for i := 0; i < 25; i++ {
		result := detector.Detect(injectionText())
		assert.Equal(t, detect.VerdictSuspicious, result.Verdict)
		assert.Equal(t, detect.ReasonInjection, result.Reason)
	}
}
