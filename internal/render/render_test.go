package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRecording = `{"Exec":{"ts":10000000,"pid":101,"ppid":100,"pgid":101,"cmdline":"/bin/echo hi"}}
{"Fork":{"ts":0,"parent_pid":100,"child_pid":101,"parent_pgid":99}}
{"Exit":{"ts":40000000,"pid":101,"ppid":100,"pgid":101}}
`

func TestRenderSequentialOrdersByTimestamp(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Render(&out, strings.NewReader(sampleRecording), Sequential, nil))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Fork")
	assert.Contains(t, lines[1], "Exec")
	assert.Contains(t, lines[2], "Exit")
}

func TestRenderByProcessGroupsAndHeaders(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Render(&out, strings.NewReader(sampleRecording), ByProcess, nil))

	output := out.String()
	assert.Contains(t, output, "PID 101: /bin/echo hi")
	assert.True(t, strings.HasSuffix(output, "\n\n"), "group must end with a blank line separator")
}

func TestRenderMermaidProducesGanttHeader(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Render(&out, strings.NewReader(sampleRecording), Mermaid, nil))

	output := out.String()
	assert.True(t, strings.HasPrefix(output, "gantt\n"))
	assert.Contains(t, output, "dateFormat x")
	assert.Contains(t, output, "axisFormat %S.%L")
	assert.Contains(t, output, "section /bin/echo")
	assert.Contains(t, output, "10, 40")
}

func TestRenderMermaidGroupsNonRootUnderOther(t *testing.T) {
	multi := `{"Fork":{"ts":0,"parent_pid":1,"child_pid":100,"parent_pgid":1}}
{"Exec":{"ts":1000000,"pid":100,"ppid":1,"pgid":100,"cmdline":"/bin/sh run.sh"}}
{"Fork":{"ts":5000000,"parent_pid":100,"child_pid":101,"parent_pgid":100}}
{"Exec":{"ts":6000000,"pid":101,"ppid":100,"pgid":101,"cmdline":"/bin/ls -la"}}
{"Exit":{"ts":8000000,"pid":101,"ppid":100,"pgid":101}}
{"Exit":{"ts":10000000,"pid":100,"ppid":1,"pgid":100}}
`
	var out bytes.Buffer
	require.NoError(t, Render(&out, strings.NewReader(multi), Mermaid, nil))

	output := out.String()
	assert.Contains(t, output, "section /bin/sh")
	assert.Contains(t, output, "section other")
	assert.Contains(t, output, "/bin/ls")
}

func TestRenderRejectsUnknownMode(t *testing.T) {
	var out bytes.Buffer
	err := Render(&out, strings.NewReader(sampleRecording), Mode("bogus"), nil)
	assert.Error(t, err)
}
