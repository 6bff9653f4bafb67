package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mediocregopher/radix/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/tomb.v1"

	"github.com/Craftserve/msgproxy/metrics"
	"github.com/Craftserve/msgproxy/rules"
)

// ReloadChannel is the redis channel every proxy instance listens on.
const ReloadChannel = "msgproxy.reload"

const DefaultDebounce = 500 * time.Millisecond

// Reloader swaps the store to a freshly loaded rule set, keeping the old
// one when loading fails.
type Reloader struct {
	Store   *rules.Store
	Loader  rules.Loader
	Metrics *metrics.Metrics
}

// publisher is a loader with state that goes live after its rule set.
type publisher interface {
	Publish()
}

func (r *Reloader) Reload(source string) error {
	gen, err := r.Store.Reload(r.Loader)
	if p, ok := r.Loader.(publisher); ok && err == nil {
		p.Publish()
	}
	set := r.Store.Snapshot()
	r.Metrics.Reload(source, err == nil, gen, set.Len())
	log := logrus.WithFields(logrus.Fields{
		"source":     source,
		"generation": gen,
	})
	if err != nil {
		log.WithError(err).Error("config: rule reload failed, keeping previous rules")
		return err
	}
	log.WithField("rules", set.Len()).Info("config: rules reloaded")
	return nil
}

// WatchFiles reloads when any of paths changes. Directories are watched as
// a whole; for files the parent directory is watched so editors that
// replace the file are noticed. Kill the returned tomb to stop.
func WatchFiles(r *Reloader, debounce time.Duration, paths ...string) (*tomb.Tomb, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	files := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		p = filepath.Clean(p)
		if isDir(p) {
			dirs[p] = true
		} else {
			files[p] = true
			p = filepath.Dir(p)
		}
		if err = w.Add(p); err != nil {
			w.Close()
			return nil, fmt.Errorf("watch %s: %w", p, err)
		}
	}
	relevant := func(name string) bool {
		name = filepath.Clean(name)
		if files[name] {
			return true
		}
		base := filepath.Base(name)
		if !dirs[filepath.Dir(name)] || strings.HasPrefix(base, ".") {
			return false
		}
		return strings.HasSuffix(base, ".yml") || strings.HasSuffix(base, ".yaml")
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	t := &tomb.Tomb{}
	go func() {
		defer t.Done()
		defer w.Close()

		timer := time.NewTimer(debounce)
		timer.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) || !relevant(ev.Name) {
					continue
				}
				timer.Reset(debounce)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logrus.WithError(err).Warn("config: file watcher error")
			case <-timer.C:
				r.Reload("file")
			case <-t.Dying():
				timer.Stop()
				return
			}
		}
	}()
	return t, nil
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// SubscribeReload reloads whenever a message arrives on ReloadChannel.
func SubscribeReload(ps radix.PubSubConn, r *Reloader) (*tomb.Tomb, error) {
	msgs := make(chan radix.PubSubMessage)
	if err := ps.Subscribe(msgs, ReloadChannel); err != nil {
		return nil, err
	}
	t := &tomb.Tomb{}
	go func() {
		defer t.Done()
		for {
			select {
			case msg := <-msgs:
				logrus.WithField("reason", string(msg.Message)).Info("config: reload requested over redis")
				r.Reload("redis")
			case <-t.Dying():
				// keep draining so a message in flight cannot block Close
				done := make(chan struct{})
				go func() {
					for {
						select {
						case <-msgs:
						case <-done:
							return
						}
					}
				}()
				ps.Close()
				close(done)
				return
			}
		}
	}()
	return t, nil
}

// PublishReload asks every subscribed proxy to reload its rules.
func PublishReload(client radix.Client, reason string) (receivers int, err error) {
	err = client.Do(radix.Cmd(&receivers, "PUBLISH", ReloadChannel, reason))
	return
}
