package review

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cadence/internal/period"
	"github.com/roach88/cadence/internal/schema"
)

func filled(t Template, value string) Responses {
	r := make(Responses)
	for _, f := range t.Fields {
		if f.Required {
			r[f.Name] = value
		}
	}
	return r
}

// The Go templates drive the form; the CUE schema guards the backend.
// Both must accept and reject exactly the same inputs.
func TestTemplates_AgreeWithSchema(t *testing.T) {
	v := schema.MustNewValidator()

	for _, c := range period.Cadences() {
		tmpl, ok := TemplateFor(c)
		require.True(t, ok, c.String())

		schemaFields := v.Fields(c)
		require.Len(t, schemaFields, len(tmpl.Fields), c.String())
		for _, f := range tmpl.Fields {
			req, ok := schemaFields[f.Name]
			require.True(t, ok, "%s: schema lacks %s", c, f.Name)
			assert.Equal(t, f.Required, req, "%s: %s required mismatch", c, f.Name)
		}

		for _, f := range tmpl.Fields {
			t.Run(fmt.Sprintf("%s/%s", c, f.Name), func(t *testing.T) {
				r := filled(tmpl, "x")
				r[f.Name] = strings.Repeat("a", f.MaxLen)
				assert.NoError(t, Validate(tmpl, r))
				assert.NoError(t, v.Validate(c, r))

				r[f.Name] = strings.Repeat("a", f.MaxLen+1)
				assert.Error(t, Validate(tmpl, r))
				assert.Error(t, v.Validate(c, r))
			})
		}
	}
}

func TestValidate_WeeklyEmptyFieldRejected(t *testing.T) {
	tmpl, _ := TemplateFor(period.Weekly)
	r := Responses{
		"biggestSuccess":      "",
		"mostFrustrating":     "x",
		"differentlyNextTime": "x",
		"learned":             "x",
		"nextWeekFocus":       "x",
	}

	err := Validate(tmpl, r)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, []schema.Violation{{Field: "biggestSuccess", Reason: schema.ReasonRequired}}, rerr.Fields)
}

func TestValidate_UnknownFieldsSorted(t *testing.T) {
	tmpl, _ := TemplateFor(period.Weekly)
	r := filled(tmpl, "x")
	r["zeta"] = "1"
	r["alpha"] = "1"

	var rerr *Error
	require.True(t, errors.As(Validate(tmpl, r), &rerr))
	assert.Equal(t, []schema.Violation{
		{Field: "alpha", Reason: schema.ReasonUnknown},
		{Field: "zeta", Reason: schema.ReasonUnknown},
	}, rerr.Fields)
}

func TestValidate_InvalidUTF8Rejected(t *testing.T) {
	tmpl, _ := TemplateFor(period.Weekly)
	r := filled(tmpl, "x")
	r["learned"] = "ok\xffbad"

	var rerr *Error
	require.True(t, errors.As(Validate(tmpl, r), &rerr))
	assert.Equal(t, []schema.Violation{{Field: "learned", Reason: schema.ReasonInvalid}}, rerr.Fields)
}

func TestValidate_LengthCountedAfterNFC(t *testing.T) {
	tmpl, _ := TemplateFor(period.Weekly)
	r := filled(tmpl, "x")
	// 1000 decomposed e-acute sequences are 2000 runes raw, 1000 after NFC.
	r["learned"] = strings.Repeat("e\u0301", 1000)
	assert.NoError(t, Validate(tmpl, r))
}

func TestProgress(t *testing.T) {
	tmpl, _ := TemplateFor(period.Weekly)
	r := tmpl.Empty()
	assert.Equal(t, 0, Progress(tmpl, r))

	r["biggestSuccess"] = "shipped"
	assert.Equal(t, 20, Progress(tmpl, r))

	r["learned"] = "patience"
	r["nextWeekFocus"] = "rest"
	assert.Equal(t, 60, Progress(tmpl, r))

	monthly, _ := TemplateFor(period.Monthly)
	m := monthly.Empty()
	m["learned"] = "x"
	assert.Equal(t, 16, Progress(monthly, m))
}

func TestProgress_IgnoresOptionalFields(t *testing.T) {
	tmpl, _ := TemplateFor(period.Annual)
	r := tmpl.Empty()
	r[NorthStarNotesField("love")] = "notes only"
	assert.Equal(t, 0, Progress(tmpl, r))

	assert.Equal(t, 100, Progress(tmpl, filled(tmpl, "x")))
}

func TestTemplate_Lookup(t *testing.T) {
	tmpl, ok := TemplateFor(period.Annual)
	require.True(t, ok)

	f, ok := tmpl.Field(NorthStarField("health"))
	require.True(t, ok)
	assert.True(t, f.Required)
	assert.Equal(t, 10000, f.MaxLen)

	f, ok = tmpl.Field(NorthStarNotesField("health"))
	require.True(t, ok)
	assert.False(t, f.Required)

	_, ok = TemplateFor(period.Cadence(0))
	assert.False(t, ok)
}

func TestResponses_NextNorthStars(t *testing.T) {
	r := Responses{
		NextNorthStarField("wealth"): "  save 20%  ",
		NextNorthStarField("health"): "",
		NextNorthStarField("love"):   "weekly date night",
	}
	assert.Equal(t, map[string]string{"wealth": "save 20%", "love": "weekly date night"}, r.NextNorthStars())
}

func TestResponses_CloneEqualDigest(t *testing.T) {
	r := Responses{"a": "1", "b": "2"}
	c := r.Clone()
	assert.True(t, r.Equal(c))

	c["a"] = "changed"
	assert.Equal(t, "1", r["a"])
	assert.False(t, r.Equal(c))

	d1, err := r.Digest()
	require.NoError(t, err)
	d2, err := Responses{"b": "2", "a": "1"}.Digest()
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestResponses_Normalize(t *testing.T) {
	r := Responses{"learned": "cafe\u0301"}
	assert.Equal(t, "caf\u00e9", r.Normalize()["learned"])
	assert.Equal(t, "cafe\u0301", r["learned"])
}

func TestError_Matching(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", WrapError(CodeStoreUnavailable, "write failed", errors.New("disk I/O")))

	assert.True(t, IsStoreUnavailable(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.True(t, errors.Is(wrapped, NewError(CodeStoreUnavailable, "")))
	assert.Equal(t, CodeStoreUnavailable, CodeOf(wrapped))
	assert.Contains(t, wrapped.Error(), "disk I/O")

	assert.True(t, IsUnauthenticated(ErrUnauthenticated))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}
