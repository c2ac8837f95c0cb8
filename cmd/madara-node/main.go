/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// madara-node runs a standalone MADARA participant: a knowledge.Context fed
// by a QoSSettings file, a UDPTransport moving updates to the rest of the
// domain, and an optional checkpoint directory for restore points.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dc0d/onexit"

	"github.com/launix-de/madara/checkpoint"
	"github.com/launix-de/madara/internal/logx"
	"github.com/launix-de/madara/knowledge"
	"github.com/launix-de/madara/transport"
)

func main() {
	settingsPath := flag.String("settings", "", "QoS settings file (see transport.LoadQoSSettings)")
	sendHertz := flag.Float64("send-hertz", 1, "how often to flush the modified set to the transport")
	checkpointDir := flag.String("checkpoint-dir", "", "directory to watch for and write checkpoints (disabled if empty)")
	flag.Parse()

	settings := transport.DefaultQoSSettings()
	if *settingsPath != "" {
		loaded, err := transport.LoadQoSSettings(*settingsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "madara-node: %v\n", err)
			os.Exit(1)
		}
		settings = loaded
	}
	if len(settings.Hosts) == 0 {
		fmt.Fprintln(os.Stderr, "madara-node: settings must declare at least one host")
		os.Exit(1)
	}

	ctx := knowledge.NewContext()
	tr, err := transport.NewUDPTransport(ctx, settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "madara-node: %v\n", err)
		os.Exit(1)
	}
	onexit.Register(func() {
		logx.Info("madara-node: shutting down")
		tr.Close()
	})

	var store checkpoint.Store
	if *checkpointDir != "" {
		fileStore := checkpoint.NewFileStore(*checkpointDir)
		store = fileStore
		watcher, err := checkpoint.WatchDir(*checkpointDir, func(name string, blob []byte) {
			_, snapshot, err := checkpoint.Load(blob)
			if err != nil {
				logx.Warn("madara-node: dropped checkpoint %q: %v", name, err)
				return
			}
			ctx.Import(snapshot)
			logx.Info("madara-node: imported checkpoint %q (%d records)", name, len(snapshot))
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "madara-node: %v\n", err)
			os.Exit(1)
		}
		onexit.Register(func() { watcher.Close() })
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	period := time.Duration(float64(time.Second) / (*sendHertz))
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	logx.Info("madara-node: participant started on domain %q", settings.Domain)
	for {
		select {
		case <-ticker.C:
			if updates := tr.PrepSend(); updates != nil {
				if _, err := tr.SendData(updates); err != nil {
					logx.Warn("madara-node: send: %v", err)
				}
			}
		case <-sigc:
			if store != nil {
				blob := checkpoint.Dump(ctx.Export(), uint64(time.Now().Unix()))
				if err := store.WriteCheckpoint("shutdown", blob); err != nil {
					logx.Warn("madara-node: writing shutdown checkpoint: %v", err)
				}
			}
			onexit.Exit(0)
			return
		}
	}
}
