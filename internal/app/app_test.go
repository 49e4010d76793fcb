package app

import (
	"bytes"
	"context"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/assistant"
	"docqa/internal/chunker"
	"docqa/internal/fusion"
	"docqa/internal/lexical"
	"docqa/internal/session"
)

func hashEmbed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 32)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%32] = 1
	}
	vec[31] += 0.01
	return vec, nil
}

type staticCompleter string

func (s staticCompleter) Complete(context.Context, []assistant.Message) (string, error) {
	return string(s), nil
}

func newApp(t *testing.T, reply, input, output string) (*App, *bytes.Buffer) {
	t.Helper()
	sess := session.New(session.Config{
		Chunking: chunker.DefaultConfig(),
		BM25:     lexical.DefaultParams(),
		Weights:  fusion.DefaultWeights(),
		TopK:     3,
	}, session.Deps{
		Embed:     hashEmbed,
		Assembler: assistant.NewAssembler(staticCompleter(reply), "", nil, nil),
	})
	var out bytes.Buffer
	return New(sess, Options{In: strings.NewReader(input), Out: &out, OutputPath: output}), &out
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRun_UploadAndAsk(t *testing.T) {
	doc := writeFile(t, "faq.csv", "question,answer\nopening hours,9 to 5\n")
	a, out := newApp(t, "We open at 9.", "/upload "+doc+"\nwhen do you open\n/quit\nnever read\n", "")

	require.NoError(t, a.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Vector data created successfully. faq.csv: 2 pages, 2 chunks.")
	assert.Contains(t, text, "We open at 9.")
	assert.Contains(t, text, "## Citations")
	assert.Contains(t, text, "Citation 1 - faq.csv - Row ")

	turns := a.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, "when do you open", turns[0].Question)
	assert.Equal(t, "faq.csv", turns[0].FileName)
}

func TestRun_QuestionBeforeUpload(t *testing.T) {
	a, out := newApp(t, "Hi!", "hello\n", "")

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "Could not retrieve data. Did you forget to upload file?")
	assert.Contains(t, out.String(), "Hi!")
	assert.NotContains(t, out.String(), "## Citations")
}

func TestRun_HedgedAnswerHidesCitations(t *testing.T) {
	doc := writeFile(t, "notes.txt", "some unrelated notes")
	a, out := newApp(t, "I don't know.", "/upload "+doc+"\nwhat is the price\n", "")

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "I don't know.")
	assert.NotContains(t, out.String(), "## Citations")
}

func TestRun_UploadErrors(t *testing.T) {
	bad := writeFile(t, "image.png", "png")
	broken := writeFile(t, "broken.pdf", "not a pdf")
	input := "/upload\n/upload " + bad + "\n/upload " + broken + "\n/upload /does/not/exist.txt\n"
	a, out := newApp(t, "", input, "")

	require.NoError(t, a.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Usage: /upload <path>")
	assert.Contains(t, text, "Unsupported file type")
	assert.Contains(t, text, "Please upload a valid file")
	assert.Contains(t, text, "File not found: /does/not/exist.txt")
}

func TestRun_Reset(t *testing.T) {
	a, out := newApp(t, "ok", "first\n/reset\n", "")

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "Chat history cleared.")
	assert.Empty(t, a.session.History())
}

func TestRun_CanceledContext(t *testing.T) {
	a, _ := newApp(t, "ok", "question\n", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, a.Run(ctx))
	assert.Empty(t, a.Turns())
}

func TestRun_SavesTranscript(t *testing.T) {
	doc := writeFile(t, "guide.txt", "Install with make install.")
	output := filepath.Join(t.TempDir(), "transcript.md")
	a, _ := newApp(t, "Run make install.", "/upload "+doc+"\nhow to install\n", output)

	require.NoError(t, a.Run(context.Background()))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	md := string(data)
	assert.Contains(t, md, "# Chat transcript")
	assert.Contains(t, md, "**Questions:** 1")
	assert.Contains(t, md, "## Q1: how to install")
	assert.Contains(t, md, "Run make install.")
	assert.Contains(t, md, "**Citation 1 - guide.txt**")
	assert.Contains(t, md, "> Install with make install.")
}

func TestRenderTranscript_HedgedTurnHasNoCitations(t *testing.T) {
	turns := []Turn{{
		Question: "q",
		FileName: "a.pdf",
		Answer: assistant.Answer{
			Text:      "I'm sorry.",
			Citations: []fusion.Citation{{Content: "x", Locator: chunker.Locator{Number: 1}}},
		},
	}}

	md := renderTranscript(turns, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	assert.Contains(t, md, "**Saved:** 2024-05-01 10:00:00")
	assert.NotContains(t, md, "### Citations")
}
