package plan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execWith(taskID, output string) Execution {
	return Execution{TaskID: taskID, Success: true, Output: json.RawMessage(output)}
}

func TestResolveRefs(t *testing.T) {
	t.Run("no placeholders passes through", func(t *testing.T) {
		out, err := ResolveRefs("plain text", nil)
		require.NoError(t, err)
		assert.Equal(t, "plain text", out)
	})

	t.Run("whole output", func(t *testing.T) {
		out, err := ResolveRefs("summarize {{ref:t1}}", []Execution{execWith("t1", `{"n":1}`)})
		require.NoError(t, err)
		assert.Equal(t, `summarize {"n":1}`, out)
	})

	t.Run("string leaf spliced without quotes", func(t *testing.T) {
		out, err := ResolveRefs("city is {{ref:t1#city}}", []Execution{execWith("t1", `{"city":"Oslo"}`)})
		require.NoError(t, err)
		assert.Equal(t, "city is Oslo", out)
	})

	t.Run("array index path", func(t *testing.T) {
		out, err := ResolveRefs("{{ref:t1#items.1.name}}", []Execution{execWith("t1", `{"items":[{"name":"a"},{"name":"b"}]}`)})
		require.NoError(t, err)
		assert.Equal(t, "b", out)
	})

	t.Run("unknown task", func(t *testing.T) {
		_, err := ResolveRefs("{{ref:t9}}", []Execution{execWith("t1", `1`)})
		var ref *UnresolvedRefError
		require.ErrorAs(t, err, &ref)
		assert.Contains(t, ref.Reason, `no successful output for task "t9"`)
	})

	t.Run("failed execution does not resolve", func(t *testing.T) {
		_, err := ResolveRefs("{{ref:t1}}", []Execution{failed("t1")})
		var ref *UnresolvedRefError
		require.ErrorAs(t, err, &ref)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := ResolveRefs("{{ref:t1#nope}}", []Execution{execWith("t1", `{"city":"Oslo"}`)})
		var ref *UnresolvedRefError
		require.ErrorAs(t, err, &ref)
		assert.Contains(t, ref.Reason, `key "nope" not found`)
	})

	t.Run("malformed placeholder", func(t *testing.T) {
		_, err := ResolveRefs("{{ref:}} tail", []Execution{execWith("t1", `1`)})
		var ref *UnresolvedRefError
		require.ErrorAs(t, err, &ref)
		assert.Equal(t, "malformed reference", ref.Reason)
	})

	t.Run("non json output without path", func(t *testing.T) {
		out, err := ResolveRefs("{{ref:t1}}", []Execution{execWith("t1", "raw text output")})
		require.NoError(t, err)
		assert.Equal(t, "raw text output", out)
	})
}

func TestBuildInput(t *testing.T) {
	t.Run("no deps returns resolved description", func(t *testing.T) {
		task := &Task{ID: "t1", Description: "look up weather"}
		input, err := BuildInput(task, nil)
		require.NoError(t, err)
		assert.Equal(t, "look up weather", input)
	})

	t.Run("appends dependency outputs", func(t *testing.T) {
		task := &Task{ID: "t2", Description: "summarize findings", DependsOn: []string{"t1"}}
		input, err := BuildInput(task, []Execution{execWith("t1", `{"temp":12}`)})
		require.NoError(t, err)
		assert.Contains(t, input, "summarize findings")
		assert.Contains(t, input, "Results from earlier steps:")
		assert.Contains(t, input, `- t1: {"temp":12}`)
	})

	t.Run("uses latest successful output", func(t *testing.T) {
		task := &Task{ID: "t2", Description: "go", DependsOn: []string{"t1"}}
		input, err := BuildInput(task, []Execution{
			execWith("t1", `"old"`),
			failed("t1"),
			execWith("t1", `"new"`),
		})
		require.NoError(t, err)
		assert.Contains(t, input, `- t1: "new"`)
	})

	t.Run("unresolved ref fails", func(t *testing.T) {
		task := &Task{ID: "t2", Description: "use {{ref:t1#missing}}", DependsOn: []string{"t1"}}
		_, err := BuildInput(task, []Execution{execWith("t1", `{"x":1}`)})
		var ref *UnresolvedRefError
		require.ErrorAs(t, err, &ref)
	})
}
