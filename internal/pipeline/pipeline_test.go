package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/llmclean-cli/internal/ai"
	"github.com/KaramelBytes/llmclean-cli/internal/dataset"
	"github.com/KaramelBytes/llmclean-cli/internal/errs"
)

type fakeRuntime struct {
	reply string
	err   error
	calls int
	last  ai.GenerateRequest
}

func (f *fakeRuntime) Generate(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &ai.GenerateResponse{
		Choices:   []ai.Choice{{Message: ai.Message{Role: "assistant", Content: f.reply}}},
		Usage:     ai.Usage{PromptTokens: 50, CompletionTokens: 5, TotalTokens: 55},
		RequestID: "req-1",
	}, nil
}

func builderFor(rt ai.Runtime) RuntimeBuilder {
	return func(string, ai.RuntimeConfig) (ai.Runtime, error) { return rt, nil }
}

const surveyCSV = "Sex,Age,Score\nM,30,1\nF,unknown,2\nBLOD,-99,3\nM,-99,4\nF,41,5\n"

func writeInput(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func baseOptions(input string, rt ai.Runtime) Options {
	return Options{
		Input:         input,
		Columns:       []string{"Sex", "Age"},
		Provider:      ai.ProviderGemini,
		Model:         "gemini-1.5-flash",
		RuntimeConfig: ai.RuntimeConfig{APIKey: "k"},
		BuildRuntime:  builderFor(rt),
	}
}

func TestRunCleansAndWrites(t *testing.T) {
	in := writeInput(t, "survey.csv", surveyCSV)
	rt := &fakeRuntime{reply: "```json\n[\"BLOD\", \"unknown\", \"-99\"]\n```"}
	var out bytes.Buffer
	opts := baseOptions(in, rt)
	opts.Out = &out

	rep, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, rt.calls)
	require.Len(t, rt.last.Messages, 1)
	assert.Contains(t, rt.last.Messages[0].Content, `"non_numeric_values"`)

	assert.Equal(t, filepath.Join(filepath.Dir(in), "survey_cleaned.csv"), rep.Output)
	assert.Equal(t, []string{"BLOD", "unknown", "-99"}, rep.Placeholders)
	assert.Equal(t, map[string]int{"Sex": 1, "Age": 3}, rep.Replaced)
	assert.Equal(t, map[string]int{"Sex": 0, "Age": 0}, rep.Residuals)
	assert.Equal(t, "req-1", rep.RequestID)
	assert.Equal(t, 55, rep.Usage.TotalTokens)
	assert.NotEmpty(t, rep.RunID)

	b, err := os.ReadFile(rep.Output)
	require.NoError(t, err)
	assert.Equal(t, "Sex,Age,Score\nM,30,1\nF,,2\n,,3\nM,,4\nF,41,5\n", string(b))

	// the input stays untouched
	orig, err := os.ReadFile(in)
	require.NoError(t, err)
	assert.Equal(t, surveyCSV, string(orig))

	assert.Contains(t, out.String(), "Analyzing 2 string columns for placeholders...")
	assert.Contains(t, out.String(), "Identified placeholder strings:")
	assert.Contains(t, out.String(), "Remaining placeholders: 0")
	assert.Contains(t, out.String(), "Cleaned data saved to: ")
}

func TestRunDefaultsToNonNumericColumns(t *testing.T) {
	in := writeInput(t, "survey.csv", surveyCSV)
	rt := &fakeRuntime{reply: `["BLOD"]`}
	opts := baseOptions(in, rt)
	opts.Columns = nil

	rep, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sex", "Age"}, rep.Columns)
}

func TestRunOutputDir(t *testing.T) {
	in := writeInput(t, "survey.csv", surveyCSV)
	outDir := filepath.Join(t.TempDir(), "nested", "out")
	opts := baseOptions(in, &fakeRuntime{reply: `[]`})
	opts.OutputDir = outDir

	rep, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "survey_cleaned.csv"), rep.Output)
	assert.FileExists(t, rep.Output)
}

func TestRunUnknownColumnSkipsModel(t *testing.T) {
	in := writeInput(t, "survey.csv", surveyCSV)
	rt := &fakeRuntime{reply: `[]`}
	opts := baseOptions(in, rt)
	opts.Columns = []string{"Sex", "Height"}

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.Equal(t, errs.KindColumn, errs.KindOf(err))
	var cnf *dataset.ColumnNotFoundError
	require.ErrorAs(t, err, &cnf)
	assert.Equal(t, []string{"Height"}, cnf.Missing)
	assert.Zero(t, rt.calls)
	assert.NoFileExists(t, dataset.CleanedPath(in, ""))
}

func TestRunMissingKeyBeforeLoad(t *testing.T) {
	opts := baseOptions(filepath.Join(t.TempDir(), "absent.csv"), &fakeRuntime{})
	opts.RuntimeConfig.APIKey = ""

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.Equal(t, errs.KindCredential, errs.KindOf(err))
	assert.Equal(t, 2, errs.ExitCode(err))
}

func TestRunOllamaNeedsNoKey(t *testing.T) {
	in := writeInput(t, "survey.csv", surveyCSV)
	opts := baseOptions(in, &fakeRuntime{reply: `[]`})
	opts.Provider = ai.ProviderOllama
	opts.RuntimeConfig.APIKey = ""

	_, err := Run(context.Background(), opts)
	require.NoError(t, err)
}

func TestRunUnsupportedExtension(t *testing.T) {
	in := writeInput(t, "notes.txt", "a,b\n1,2\n")
	_, err := Run(context.Background(), baseOptions(in, &fakeRuntime{}))
	require.Error(t, err)
	assert.Equal(t, errs.KindFormat, errs.KindOf(err))
	assert.ErrorIs(t, err, dataset.ErrUnsupported)
}

func TestRunMissingInputIsIOError(t *testing.T) {
	_, err := Run(context.Background(), baseOptions(filepath.Join(t.TempDir(), "absent.csv"), &fakeRuntime{}))
	require.Error(t, err)
	assert.Equal(t, errs.KindIO, errs.KindOf(err))
}

func TestRunMalformedReplyWritesNothing(t *testing.T) {
	in := writeInput(t, "survey.csv", surveyCSV)
	rt := &fakeRuntime{reply: `The placeholders are BLOD and unknown.`}

	_, err := Run(context.Background(), baseOptions(in, rt))
	require.Error(t, err)
	assert.Equal(t, errs.KindParse, errs.KindOf(err))
	assert.NoFileExists(t, dataset.CleanedPath(in, ""))
}

func TestRunModelFailureKinds(t *testing.T) {
	in := writeInput(t, "survey.csv", surveyCSV)

	_, err := Run(context.Background(), baseOptions(in, &fakeRuntime{err: &ai.AuthError{APIError: &ai.APIError{StatusCode: 401}}}))
	assert.Equal(t, errs.KindCredential, errs.KindOf(err))

	_, err = Run(context.Background(), baseOptions(in, &fakeRuntime{err: errors.New("connection reset")}))
	assert.Equal(t, errs.KindNetwork, errs.KindOf(err))
	assert.Equal(t, 6, errs.ExitCode(err))
}

func TestRunDropsUnknownPlaceholders(t *testing.T) {
	in := writeInput(t, "survey.csv", surveyCSV)
	rep, err := Run(context.Background(), baseOptions(in, &fakeRuntime{reply: `["BLOD", "N/A"]`}))
	require.NoError(t, err)
	assert.Equal(t, []string{"BLOD"}, rep.Placeholders)
	assert.Equal(t, []string{"N/A"}, rep.Dropped)
}

func TestRunMatchesNumericPlaceholderSpelling(t *testing.T) {
	in := writeInput(t, "survey.csv", surveyCSV)
	rep, err := Run(context.Background(), baseOptions(in, &fakeRuntime{reply: `["-99.0"]`}))
	require.NoError(t, err)
	assert.Equal(t, []string{"-99.0"}, rep.Placeholders)
	assert.Empty(t, rep.Dropped)
	assert.Equal(t, 2, rep.Replaced["Age"])

	b, err := os.ReadFile(rep.Output)
	require.NoError(t, err)
	assert.Equal(t, "Sex,Age,Score\nM,30,1\nF,unknown,2\nBLOD,,3\nM,,4\nF,41,5\n", string(b))
}

func TestRunDryRun(t *testing.T) {
	in := writeInput(t, "survey.csv", surveyCSV)
	opts := baseOptions(in, nil)
	opts.DryRun = true
	opts.RuntimeConfig.APIKey = ""
	opts.BuildRuntime = func(string, ai.RuntimeConfig) (ai.Runtime, error) {
		t.Fatal("dry run must not build a runtime")
		return nil, nil
	}

	rep, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, rep.DryRun)
	assert.Contains(t, rep.Prompt, "unknown")
	assert.Positive(t, rep.PromptTokens)
	assert.Empty(t, rep.Output)
	assert.NoFileExists(t, dataset.CleanedPath(in, ""))
}

func TestRunXLSX(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "survey.xlsx")
	f := excelize.NewFile()
	rows := [][]any{
		{"Sex", "Age"},
		{"M", 30},
		{"BLOD", -99},
		{"F", "unknown"},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	require.NoError(t, f.SaveAs(in))
	require.NoError(t, f.Close())

	rep, err := Run(context.Background(), baseOptions(in, &fakeRuntime{reply: `["BLOD", "unknown", "-99"]`}))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "survey_cleaned.xlsx"), rep.Output)

	back, err := dataset.Load(rep.Output, dataset.LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"M", "nan", "F"}, back.Column("Sex").Strings())
	assert.Equal(t, []string{"30", "nan", "nan"}, back.Column("Age").Strings())
}

func TestSummarize(t *testing.T) {
	in := writeInput(t, "survey.csv", surveyCSV)
	cols, s, err := Summarize(in, nil, dataset.LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Sex", "Age"}, cols)
	assert.Equal(t, 1, s["Age"].NonNumericValues["unknown"])
	assert.Equal(t, 2, s["Age"].NumericExamples["-99"])
	assert.NotContains(t, s, "Score")
}
