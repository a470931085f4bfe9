package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// buildRecord is the per-build metadata sidecar written next to the
// project's build tree: which command produced it, at which compiler
// level, how long it took, and whether it succeeded. Modelled on
// distri's pb.ReadBuildFile/pb.ReadMetaFile "one declarative file per
// build" shape, but plain JSON rather than protobuf — see DESIGN.md's
// dropped-dependency note on pb/.
type buildRecord struct {
	Command       []string      `json:"command"`
	CompilerLevel string        `json:"compiler_level,omitempty"`
	Elapsed       time.Duration `json:"elapsed_ns"`
	Succeeded     bool          `json:"succeeded"`
}

func writeBuildRecord(buildTree string, rec buildRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(buildTree, "build_record.json"), data, 0644)
}

func readBuildRecord(buildTree string) (buildRecord, error) {
	data, err := os.ReadFile(filepath.Join(buildTree, "build_record.json"))
	if err != nil {
		return buildRecord{}, err
	}
	var rec buildRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return buildRecord{}, err
	}
	return rec, nil
}
