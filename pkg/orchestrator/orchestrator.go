// Package orchestrator drives backup, restore and prune runs across the
// source adapters. Per-source failures are collected, never propagated:
// a run always finishes and reports what each source did. Only failures
// of the backup directory itself abort a run.
package orchestrator

import (
	stackbak "github.com/stackmeld/stackbak/pkg"
	"github.com/stackmeld/stackbak/pkg/adapters"
	"github.com/stackmeld/stackbak/pkg/catalog"
	"github.com/stackmeld/stackbak/pkg/config"
	"github.com/stackmeld/stackbak/pkg/crypt"
	"github.com/stackmeld/stackbak/pkg/manifest"
	"github.com/stackmeld/stackbak/pkg/runlog"
)

// RefLister is implemented by adapters that can report per-repository
// HEAD hashes to be recorded in the manifest.
type RefLister interface {
	HeadRefs() (map[string]string, error)
}

// Options wires an Orchestrator. History may be nil to skip run
// recording; GPG may be nil when encryption is never requested.
type Options struct {
	Config        config.Config
	Adapters      []stackbak.SourceAdapter
	ConfigAdapter stackbak.SourceAdapter
	GPG           *crypt.GPG
	Console       runlog.Console
	History       *catalog.Catalog
}

type Orchestrator struct {
	cfg       config.Config
	adapters  []stackbak.SourceAdapter
	configAdp stackbak.SourceAdapter
	gpg       *crypt.GPG
	console   runlog.Console
	history   *catalog.Catalog
}

func New(opts Options) *Orchestrator {
	console := opts.Console
	if console == nil {
		console = runlog.Discard()
	}
	return &Orchestrator{
		cfg:       opts.Config,
		adapters:  opts.Adapters,
		configAdp: opts.ConfigAdapter,
		gpg:       opts.GPG,
		console:   console,
		history:   opts.History,
	}
}

// DefaultAdapters builds the production adapter set in dump order.
func DefaultAdapters(cfg config.Config, runner stackbak.CommandRunner, secrets stackbak.SecretProvider) []stackbak.SourceAdapter {
	return []stackbak.SourceAdapter{
		adapters.NewPostgres(runner, secrets, cfg.Sources.Postgres, cfg.ComposeDir),
		adapters.NewMySQL(runner, secrets, cfg.Sources.MySQL),
		adapters.NewMongoDB(runner, secrets, cfg.Sources.MongoDB),
		adapters.NewForgejo(runner, cfg.Sources.Forgejo, cfg.ComposeDir),
	}
}

// artifacts lists every artifact a complete run would produce, config
// last, matching the manifest's entries/config_entry split.
func (o *Orchestrator) artifacts() []manifest.Artifact {
	var list []manifest.Artifact
	for _, adapter := range o.adapters {
		list = append(list, manifest.Artifact{
			SourceName: adapter.Name(),
			Filename:   adapter.ArtifactName(),
		})
	}
	if o.configAdp != nil {
		list = append(list, manifest.Artifact{
			SourceName: o.configAdp.Name(),
			Filename:   o.configAdp.ArtifactName(),
			Config:     true,
		})
	}
	return list
}

// allAdapters returns the source adapters plus the config adapter.
func (o *Orchestrator) allAdapters() []stackbak.SourceAdapter {
	if o.configAdp == nil {
		return o.adapters
	}
	return append(append([]stackbak.SourceAdapter(nil), o.adapters...), o.configAdp)
}

func (o *Orchestrator) adapterFor(source string) stackbak.SourceAdapter {
	for _, adapter := range o.allAdapters() {
		if adapter.Name() == source {
			return adapter
		}
	}
	return nil
}
