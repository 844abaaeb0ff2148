/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/valpere/contentgate/internal/logger"
	"github.com/valpere/contentgate/internal/mcpserver"
)

var serveFlags runFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline as MCP tools over stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout exposing the
optimize_content and list_profiles tools.

The flags set the defaults for every call; tool arguments may override the
profile, mode and keyword. Logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.FromContext(cmd.Context())

		cfg, err := buildConfig(serveFlags)
		if err != nil {
			return err
		}
		gen, err := buildGenerator(serveFlags, cfg)
		if err != nil {
			return err
		}

		db, err := openHistory(serveFlags)
		if err != nil {
			return err
		}
		var rec mcpserver.Recorder
		if db != nil {
			defer db.Close()
			rec = db
		}

		mcpserver.Version = version
		s := mcpserver.New(buildOrchestrator(gen), cfg, rec)

		log.Info("serving MCP over stdio", "provider", gen.Name(), "profile", cfg.Profile, "mode", cfg.Mode)
		return mcpserver.Serve(s)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	addRunFlags(serveCmd, &serveFlags)
}
