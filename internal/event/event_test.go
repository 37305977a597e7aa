package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalRoundTrip(t *testing.T) {
	cases := []Event{
		Fork{Ts: 10, ParentPID: 100, ChildPID: 101, ParentPGID: 99},
		Exec{Ts: 20, PID_: 101, PPID: 100, PGID: 101, Cmdline: "/bin/echo hi"},
		Exit{Ts: 30, PID_: 101, PPID: 100, PGID: 101},
		SetSid{Ts: 40, PID_: 101, PPID: 100, PGID: 101, SID: 101},
		SetPgid{Ts: 50, PID_: 101, PPID: 100, PGID: 101},
	}

	for _, want := range cases {
		data, err := Marshal(want)
		require.NoError(t, err)

		got, err := Unmarshal(data)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestMarshalUsesSingleVariantKey(t *testing.T) {
	data, err := Marshal(Fork{Ts: 1, ParentPID: 1, ChildPID: 2, ParentPGID: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Fork":{"ts":1,"parent_pid":1,"child_pid":2,"parent_pgid":1}}`, string(data))
}

func TestUnmarshalUnknownVariantIsRecoverable(t *testing.T) {
	_, err := Unmarshal([]byte(`{"Renamed":{"ts":1}}`))
	assert.Error(t, err)
}

func TestUnmarshalMalformedEnvelope(t *testing.T) {
	_, err := Unmarshal([]byte(`{"Fork":{"ts":1},"Exec":{"ts":2}}`))
	assert.Error(t, err)
}

func TestPIDIsOwningProcess(t *testing.T) {
	assert.Equal(t, int32(101), Fork{ParentPID: 100, ChildPID: 101}.PID())
	assert.Equal(t, int32(101), Exec{PID_: 101}.PID())
	assert.Equal(t, int32(101), Exit{PID_: 101}.PID())
}
