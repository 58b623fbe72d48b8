// SPDX-License-Identifier: GPL-3.0-or-later

package module

import (
	"errors"
	"testing"

	"github.com/oxff/networkd/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModule struct {
	name     string
	startErr error
	stopErr  error
	started  bool
	stopped  bool
}

func (m *fakeModule) Start(cfg config.Tree) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.started = true
	return nil
}

func (m *fakeModule) Stop() error {
	if m.stopErr != nil {
		return m.stopErr
	}
	m.stopped = true
	return nil
}

func (m *fakeModule) Name() string        { return m.name }
func (m *fakeModule) Description() string { return "a fake module for tests" }

func TestRegistryRegisterAndUnload(t *testing.T) {
	var r Registry
	m := &fakeModule{name: "echo"}

	id, err := r.Register(m, config.Map{})
	require.NoError(t, err)
	assert.True(t, m.started)
	assert.Len(t, r.Enumerate(), 1)

	require.NoError(t, r.Unload(id, false))
	assert.True(t, m.stopped)
	assert.Empty(t, r.Enumerate())
}

func TestRegistryRegisterFailurePropagatesAndSkipsTracking(t *testing.T) {
	var r Registry
	m := &fakeModule{name: "broken", startErr: errors.New("boom")}

	_, err := r.Register(m, config.Map{})
	assert.Error(t, err)
	assert.Empty(t, r.Enumerate())
}

func TestRegistryUnloadFailureKeepsModuleUnlessForced(t *testing.T) {
	var r Registry
	m := &fakeModule{name: "stubborn", stopErr: errors.New("nope")}
	id, err := r.Register(m, config.Map{})
	require.NoError(t, err)

	err = r.Unload(id, false)
	assert.Error(t, err)
	assert.Len(t, r.Enumerate(), 1)

	require.NoError(t, r.Unload(id, true))
	assert.Empty(t, r.Enumerate())
}

func TestRegistryUnloadUnknownID(t *testing.T) {
	var r Registry
	assert.Error(t, r.Unload(99, false))
}

func TestRegistryUnloadAllStopsEveryoneAndReportsFirstError(t *testing.T) {
	var r Registry
	good := &fakeModule{name: "good"}
	bad := &fakeModule{name: "bad", stopErr: errors.New("boom")}
	_, err := r.Register(good, config.Map{})
	require.NoError(t, err)
	_, err = r.Register(bad, config.Map{})
	require.NoError(t, err)

	err = r.UnloadAll()
	assert.Error(t, err)
	assert.True(t, good.stopped)
	assert.Len(t, r.Enumerate(), 1, "the module that failed to stop stays tracked")
}
