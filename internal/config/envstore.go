package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// DeploymentStore records deployed instance addresses in a JSON env file
// keyed by network name.
type DeploymentStore struct {
	path string
}

// NewDeploymentStore opens (or will create) the store at path.
func NewDeploymentStore(path string) *DeploymentStore {
	return &DeploymentStore{path: path}
}

// Record writes the instance address under the network key, preserving
// entries for other networks.
func (s *DeploymentStore) Record(network, address string) error {
	entries, err := s.load()
	if err != nil {
		return err
	}
	entries[network] = address

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode env file: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write env file: %w", err)
	}
	return nil
}

// Lookup returns the recorded address for a network, if any.
func (s *DeploymentStore) Lookup(network string) (string, bool, error) {
	entries, err := s.load()
	if err != nil {
		return "", false, err
	}
	addr, ok := entries[network]
	return addr, ok, nil
}

func (s *DeploymentStore) load() (map[string]string, error) {
	entries := make(map[string]string)
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse env file: %w", err)
	}
	return entries, nil
}
