package controller

import (
	"context"
	"fmt"

	"github.com/mcpds/mcpds-setup/pkg/builder"
	"github.com/mcpds/mcpds-setup/pkg/config"
	"github.com/mcpds/mcpds-setup/pkg/environment"
	"github.com/mcpds/mcpds-setup/pkg/hostapp"
	"github.com/mcpds/mcpds-setup/pkg/provisioner"
	"github.com/mcpds/mcpds-setup/pkg/toolchain"
)

// Stage names, in execution order.
const (
	StageToolchain    = "toolchain"
	StageVenv         = "venv"
	StageSync         = "sync"
	StageHostApp      = "host-app"
	StageConfigLoad   = "config-load"
	StageBuild        = "build"
	StageConfigUpdate = "config-update"
	StageRestart      = "restart"
)

// components are the collaborators a run's stages call into.
type components struct {
	settings  config.Settings
	installer *toolchain.Installer
	env       *environment.Builder
	detector  *hostapp.Detector
	desktop   *provisioner.ClaudeDesktop
	builder   *builder.Builder
	restarter *hostapp.Restarter
}

// stages returns the provisioning stages. The restart stage is left out
// when restart is false.
func (c *components) stages(restart bool) []Stage {
	stages := []Stage{
		{Name: StageToolchain, Run: c.ensureToolchain},
		{Name: StageVenv, Run: c.ensureVenv},
		{Name: StageSync, Run: c.syncDependencies},
		{Name: StageHostApp, Run: c.checkHostApp},
		{Name: StageConfigLoad, Run: c.loadConfig},
		{Name: StageBuild, Run: c.buildPackage},
		{Name: StageConfigUpdate, Run: c.updateConfig},
	}
	if restart {
		stages = append(stages, Stage{Name: StageRestart, Run: c.restartHostApp})
	}
	return stages
}

func (c *components) ensureToolchain(ctx context.Context, st *State) (Outcome, error) {
	installed, err := c.installer.Ensure(ctx)
	if err != nil {
		return Abort, err
	}
	if !installed {
		st.Note("uv already installed")
		return Skip, nil
	}
	st.Note("installed uv")
	return Proceed, nil
}

func (c *components) ensureVenv(ctx context.Context, st *State) (Outcome, error) {
	created, err := c.env.EnsureVenv(ctx)
	if err != nil {
		return Abort, err
	}
	if !created {
		st.Note("%s exists", st.Paths.VenvDir)
		return Skip, nil
	}
	st.Note("created %s", st.Paths.VenvDir)
	return Proceed, nil
}

func (c *components) syncDependencies(ctx context.Context, _ *State) (Outcome, error) {
	if err := c.env.Sync(ctx); err != nil {
		return Abort, err
	}
	return Proceed, nil
}

func (c *components) checkHostApp(_ context.Context, st *State) (Outcome, error) {
	found, err := c.detector.Check()
	if err != nil {
		return Abort, err
	}
	if !found {
		st.Note("not found; continuing at operator's request")
	}
	return Proceed, nil
}

func (c *components) loadConfig(_ context.Context, st *State) (Outcome, error) {
	doc, err := c.desktop.Load()
	if err != nil {
		return Abort, err
	}
	st.Document = doc
	st.Note("%d server(s) registered", len(doc.Servers()))
	return Proceed, nil
}

func (c *components) buildPackage(ctx context.Context, st *State) (Outcome, error) {
	artifact, err := c.builder.Build(ctx)
	if err != nil {
		return Abort, err
	}
	st.Artifact = artifact
	st.Note("%s", artifact.Path)
	return Proceed, nil
}

func (c *components) updateConfig(_ context.Context, st *State) (Outcome, error) {
	if st.Document == nil || st.Artifact == nil {
		return Abort, fmt.Errorf("config update needs a loaded config and a built wheel")
	}

	entry := c.settings.Launcher.Entry(st.Artifact.Path)
	replaced := provisioner.Register(st.Document, c.settings.ServerName, entry)
	if err := c.desktop.Save(st.Document); err != nil {
		return Abort, err
	}

	verb := "added"
	if replaced {
		verb = "replaced"
	}
	st.Note("%s %q in %s", verb, c.settings.ServerName, c.desktop.Path())
	return Proceed, nil
}

func (c *components) restartHostApp(ctx context.Context, st *State) (Outcome, error) {
	action, err := c.restarter.Restart(ctx)
	if err != nil {
		return Abort, err
	}
	st.Note("%s", string(action))
	if action == hostapp.ActionDeclined {
		return Skip, nil
	}
	return Proceed, nil
}
