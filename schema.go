package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"
	"github.com/wricardo/pong-arena/game/protocol"
)

// protocolMessages are the frames that cross the game WebSocket, keyed by
// definition name.
var protocolMessages = []struct {
	name        string
	description string
	value       interface{}
}{
	{"Inbound", "Client frame: DIMENSIONS or PLAYER_INPUT", new(protocol.Inbound)},
	{"GameInitialized", "Sent after DIMENSIONS with the full state and the receiver's side", new(protocol.GameInitialized)},
	{"GameStarted", "Sent to every connection when play begins", new(protocol.GameStarted)},
	{"GameState", "Per-tick snapshot", new(protocol.GameState)},
	{"GameOver", "Final frame of a match", new(protocol.GameOver)},
	{"Error", "Rejected client frame; the connection stays open", new(protocol.Error)},
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}

	root := &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "Pong Arena Protocol",
		Description: "JSON frames exchanged on /sessions/{gameId}. The pong.v1.msgpack subprotocol carries the same fields.",
		Definitions: jsonschema.Definitions{},
	}

	for _, msg := range protocolMessages {
		schema := reflector.Reflect(msg.value)
		schema.Version = ""
		schema.Title = msg.name
		schema.Description = msg.description
		root.Definitions[msg.name] = schema
		root.OneOf = append(root.OneOf, &jsonschema.Schema{Ref: "#/$defs/" + msg.name})
	}

	return root
}

func marshalSchema(schema *jsonschema.Schema) ([]byte, error) {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return append(data, '\n'), nil
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := marshalSchema(schema)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
