package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/fuse/internal/config"
	"github.com/kalambet/fuse/internal/profile"
	"github.com/kalambet/fuse/internal/scoring"
)

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage stored profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/profiles?limit=%d&offset=%d", limit, offset))
		if err != nil {
			return err
		}

		var page struct {
			Profiles []profile.Profile `json:"profiles"`
			Total    int               `json:"total"`
		}
		if err := decodeJSON(resp, &page); err != nil {
			return err
		}

		if len(page.Profiles) == 0 {
			fmt.Println("No profiles found.")
			return nil
		}

		now := time.Now()
		for _, p := range page.Profiles {
			fmt.Printf("%s  %s\n", colorize(colorCyan, p.ID), profile.Summarize(p, now))
		}
		if shown := offset + len(page.Profiles); shown < page.Total {
			fmt.Printf("\n%d of %d shown\n", shown, page.Total)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), profilePath(args[0]))
		if err != nil {
			return err
		}

		var p profile.Profile
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

var profileImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import a profile or an array of profiles from a JSON file",
	Long: `Import profiles from a JSON file.

The file holds a single profile object or an array of them. Profiles with an
id are upserted; profiles without one get a generated id.

Example:
  fuse profile import ./profiles.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		imported, failures, err := importProfiles(cmd.Context(), client, data)
		if err != nil {
			return err
		}
		if failures > 0 {
			printWarning("Imported %d profiles, %d failed", imported, failures)
			return fmt.Errorf("%d profiles failed to import", failures)
		}
		printSuccess("Imported %d profiles", imported)
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), profilePath(args[0]))
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}

		printSuccess("Deleted profile %s", args[0])
		return nil
	},
}

func init() {
	profileListCmd.Flags().Int("limit", 50, "maximum number of profiles to list")
	profileListCmd.Flags().Int("offset", 0, "number of profiles to skip")
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileImportCmd)
	profileCmd.AddCommand(profileDeleteCmd)
}

// parseProfiles accepts a single JSON object or an array of objects.
func parseProfiles(data []byte) ([]profile.Profile, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty input")
	}
	if trimmed[0] == '[' {
		var ps []profile.Profile
		if err := json.Unmarshal(trimmed, &ps); err != nil {
			return nil, fmt.Errorf("parsing profiles: %w", err)
		}
		return ps, nil
	}
	var p profile.Profile
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	return []profile.Profile{p}, nil
}

// importProfiles sends each profile to the server and keeps going after a
// failed one.
func importProfiles(ctx context.Context, client *apiClient, data []byte) (imported, failures int, err error) {
	ps, err := parseProfiles(data)
	if err != nil {
		return 0, 0, err
	}

	for i, p := range ps {
		label := p.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}

		var sendErr error
		if p.ID != "" {
			resp, err := client.put(ctx, profilePath(p.ID), p)
			if err == nil {
				sendErr = decodeJSON(resp, nil)
			} else {
				sendErr = err
			}
		} else {
			resp, err := client.post(ctx, "/profiles", p)
			if err == nil {
				sendErr = decodeJSON(resp, nil)
			} else {
				sendErr = err
			}
		}

		if sendErr != nil {
			printError("Failed to import profile %s: %v", label, sendErr)
			failures++
			continue
		}
		imported++
	}
	return imported, failures, nil
}

// --- match ---

var matchCmd = &cobra.Command{
	Use:   "match <id>",
	Short: "Rank stored profiles by compatibility with a subject",
	Long: `Rank stored profiles by compatibility with a subject.

Examples:
  fuse match alice
  fuse match alice --min-age 25 --max-age 35 --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		minAge, _ := cmd.Flags().GetInt("min-age")
		maxAge, _ := cmd.Flags().GetInt("max-age")
		location, _ := cmd.Flags().GetString("location")
		mbti, _ := cmd.Flags().GetString("mbti")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := profilePath(args[0]) + "/matches?" + matchQuery(minAge, maxAge, location, mbti, limit)
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var result struct {
			Total   int `json:"total"`
			Matches []struct {
				CandidateID string         `json:"candidate_id"`
				Name        string         `json:"name"`
				Result      scoring.Result `json:"result"`
			} `json:"matches"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Matches) == 0 {
			fmt.Println("No matches found.")
			return nil
		}

		for i, m := range result.Matches {
			name := m.CandidateID
			if m.Name != "" {
				name = fmt.Sprintf("%s (%s)", m.Name, m.CandidateID)
			}
			fmt.Printf("%s %s  %s\n",
				colorize(colorBold, fmt.Sprintf("%2d.", i+1)),
				formatScore(m.Result.Overall),
				name,
			)
			for _, reason := range m.Result.Reasoning {
				fmt.Printf("      %s\n", reason)
			}
		}
		if len(result.Matches) < result.Total {
			fmt.Printf("\n%d of %d matches shown\n", len(result.Matches), result.Total)
		}
		return nil
	},
}

func init() {
	matchCmd.Flags().Int("min-age", 0, "minimum candidate age")
	matchCmd.Flags().Int("max-age", 0, "maximum candidate age")
	matchCmd.Flags().String("location", "", "preferred location")
	matchCmd.Flags().String("mbti", "", "preferred MBTI type")
	matchCmd.Flags().Int("limit", 10, "maximum number of matches to show")
}

// matchQuery encodes only the criteria that were set.
func matchQuery(minAge, maxAge int, location, mbti string, limit int) string {
	q := url.Values{}
	if minAge > 0 {
		q.Set("min_age", strconv.Itoa(minAge))
	}
	if maxAge > 0 {
		q.Set("max_age", strconv.Itoa(maxAge))
	}
	if location != "" {
		q.Set("location", location)
	}
	if mbti != "" {
		q.Set("mbti", mbti)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q.Encode()
}

// --- score ---

var scoreCmd = &cobra.Command{
	Use:   "score <subject-id> <candidate-id>",
	Short: "Score one candidate against a subject",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/compatibility", map[string]string{
			"subject_id":   args[0],
			"candidate_id": args[1],
		})
		if err != nil {
			return err
		}

		var result scoring.Result
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printResult(os.Stdout, result)
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			line := fmt.Sprintf("  %s = %s", colorize(colorBold, k.Key), k.Value)
			if k.FromEnv {
				line += colorize(colorCyan, " (from "+k.EnvVar+")")
			}
			fmt.Println(line)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value and fall back to its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

var configRotateTokenCmd = &cobra.Command{
	Use:   "rotate-token",
	Short: "Replace the API bearer token",
	Long: `Replace the API bearer token in the platform secret store.

A running server keeps accepting the old token until it is restarted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.RotateAPIToken(config.NewKeychain()); err != nil {
			return err
		}
		printSuccess("API token rotated")
		printWarning("Restart the server (fuse stop && fuse start) to apply it")
		return nil
	},
}

func init() {
	configSetCmd.Long = "Set a configuration value.\n\nValid keys:\n  " + strings.Join(config.ValidKeys(), "\n  ")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configRotateTokenCmd)
}
