package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cadence/internal/review"
	"github.com/roach88/cadence/internal/schema"
)

// answerFlags are the inputs submit, edit and progress accept.
type answerFlags struct {
	File    string
	Answers []string
}

func (a *answerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&a.File, "file", "f", "", `YAML or JSON map of answers ("-" for stdin)`)
	cmd.Flags().StringArrayVarP(&a.Answers, "answer", "a", nil, "answer as name=value (repeatable, overrides --file)")
}

// read collects the answers from --file and --answer.
func (a *answerFlags) read(stdin io.Reader) (review.Responses, error) {
	answers := review.Responses{}

	if a.File != "" {
		var r io.Reader
		if a.File == "-" {
			r = stdin
		} else {
			file, err := os.Open(a.File)
			if err != nil {
				return nil, fmt.Errorf("open answers: %w", err)
			}
			defer file.Close()
			r = file
		}
		decoded, err := decodeAnswers(r)
		if err != nil {
			return nil, fmt.Errorf("read answers %s: %w", a.File, err)
		}
		for k, v := range decoded {
			answers[k] = v
		}
	}

	for _, pair := range a.Answers {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --answer %q: want name=value", pair)
		}
		answers[strings.TrimSpace(name)] = value
	}
	return answers, nil
}

// decodeAnswers parses a YAML (or JSON) map of question name to answer.
// An empty document yields no answers.
func decodeAnswers(r io.Reader) (map[string]string, error) {
	var m map[string]string
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	if m == nil {
		m = map[string]string{}
	}
	return m, nil
}

// checkKnown rejects answers to questions the template does not ask.
func checkKnown(t review.Template, answers review.Responses) error {
	var unknown []string
	for name := range answers {
		if _, ok := t.Field(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	violations := make([]schema.Violation, len(unknown))
	for i, name := range unknown {
		violations[i] = schema.Violation{Field: name, Reason: schema.ReasonUnknown}
	}
	return review.NewValidationError(t.Cadence, violations)
}
