// Package main implements hooksend, the thin client installed as a session
// hook command. It reads the hook event JSON the agent runtime writes to
// stdin, forwards it to the hearsay daemon, and always exits 0: a missing or
// unhealthy daemon must never fail the hook and block the session.
//
// Usage in a hook configuration:
//
//	hooksend -hook notification
//
// The -hook flag names the hook type when the stdin payload does not carry
// one. -addr overrides the daemon address (default http://127.0.0.1:8487).
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const defaultAddr = "http://127.0.0.1:8487"

// sendTimeout bounds the whole request. Hooks run inline with the session;
// a slow daemon must not stall it.
const sendTimeout = 2 * time.Second

func main() {
	// Errors are reported on stderr for hook debug logs, never via the
	// exit code.
	if err := run(os.Stdin, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "hooksend: %v\n", err)
	}
	os.Exit(0)
}

func run(stdin io.Reader, args []string) error {
	fs := flag.NewFlagSet("hooksend", flag.ContinueOnError)
	addr := fs.String("addr", defaultAddr, "hearsay daemon base URL")
	hook := fs.String("hook", "", "hook type to set when the payload omits one")
	message := fs.String("message", "", "message to send instead of reading stdin")
	priority := fs.String("priority", "", "explicit priority override")
	if err := fs.Parse(args); err != nil {
		return err
	}

	event, err := buildEvent(stdin, *hook, *message, *priority)
	if err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	client := &http.Client{Timeout: sendTimeout}
	resp, err := client.Post(*addr+"/v1/events", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("daemon rejected event: %d %s", resp.StatusCode, payload)
	}
	return nil
}

// buildEvent assembles the event payload from stdin JSON and flag overrides.
// The stdin payload is passed through untouched except for filling in the
// hook type, message, and priority when flags supply them; the daemon owns
// validation and priority inference.
func buildEvent(stdin io.Reader, hook, message, priority string) (map[string]any, error) {
	event := map[string]any{}

	raw, err := io.ReadAll(io.LimitReader(stdin, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &event); err != nil {
			return nil, fmt.Errorf("parsing stdin payload: %w", err)
		}
	}

	if hook != "" {
		event["hook_type"] = hook
	}
	if message != "" {
		event["message"] = message
	}
	if priority != "" {
		event["priority"] = priority
	}

	// Fall back to the conventional runtime field names when the payload
	// uses them instead of the daemon's.
	if _, ok := event["message"]; !ok {
		for _, alias := range []string{"notification", "reason", "prompt"} {
			if v, ok := event[alias].(string); ok && v != "" {
				event["message"] = v
				break
			}
		}
	}
	for _, alias := range []string{"notification", "reason", "prompt"} {
		delete(event, alias)
	}

	if _, ok := event["hook_type"]; !ok {
		if v, ok := event["hook_event_name"].(string); ok && v != "" {
			event["hook_type"] = v
		}
	}
	delete(event, "hook_event_name")

	return projectEvent(event), nil
}

// eventFields is the daemon's strict event contract. Runtime payloads carry
// extra fields (cwd, transcript paths); anything outside the contract moves
// into metadata so the daemon's strict decoder accepts the event without
// losing provenance.
var eventFields = map[string]bool{
	"session_id": true,
	"hook_type":  true,
	"tool_name":  true,
	"message":    true,
	"priority":   true,
	"type":       true,
	"created_at": true,
	"metadata":   true,
}

func projectEvent(event map[string]any) map[string]any {
	out := map[string]any{}
	metadata, _ := event["metadata"].(map[string]any)

	for k, v := range event {
		if eventFields[k] {
			out[k] = v
			continue
		}
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[k] = v
	}
	if metadata != nil {
		out["metadata"] = metadata
	}
	return out
}
