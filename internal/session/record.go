package session

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/erg0nix/skill-improver/internal/core"
	"github.com/erg0nix/skill-improver/internal/frontmatter"
)

const (
	keySessionID     = "session_id"
	keyIteration     = "iteration"
	keyMaxIterations = "max_iterations"
	keySkillPath     = "skill_path"
	keySkillName     = "skill_name"
)

var ErrMissingBlock = errors.New("session record: missing metadata block")

type recordDoc struct {
	SessionID     string `yaml:"session_id"`
	Iteration     *int   `yaml:"iteration"`
	MaxIterations *int   `yaml:"max_iterations"`
	SkillPath     string `yaml:"skill_path"`
	SkillName     string `yaml:"skill_name"`
}

func EncodeRecord(r Record) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	return frontmatter.Render([]frontmatter.Field{
		{Key: keySessionID, Value: string(r.ID)},
		{Key: keyIteration, Value: r.Iteration},
		{Key: keyMaxIterations, Value: r.MaxIterations},
		{Key: keySkillPath, Value: r.SkillPath},
		{Key: keySkillName, Value: r.SkillName},
	})
}

// DecodeRecord parses a record file strictly: the block must hold exactly
// the record fields, each valid.
func DecodeRecord(data []byte) (Record, error) {
	block, _, ok := frontmatter.Split(data)
	if !ok {
		return Record{}, ErrMissingBlock
	}

	var doc recordDoc
	dec := yaml.NewDecoder(bytes.NewReader(block))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return Record{}, fmt.Errorf("session record: parse: %w", err)
	}

	if doc.Iteration == nil || doc.MaxIterations == nil {
		return Record{}, fmt.Errorf("%w: iteration and max_iterations are required", ErrInvalidRecord)
	}

	record := Record{
		ID:            core.SessionID(doc.SessionID),
		Iteration:     *doc.Iteration,
		MaxIterations: *doc.MaxIterations,
		SkillPath:     doc.SkillPath,
		SkillName:     doc.SkillName,
	}
	if err := record.Validate(); err != nil {
		return Record{}, err
	}
	return record, nil
}

// salvageRecord reads whatever fields a damaged record still carries so the
// session can be listed and cancelled.
func salvageRecord(id core.SessionID, data []byte) Record {
	name := frontmatter.Extract(data, keySkillName)
	if name == "" {
		name = UnknownSkillName
	}

	iteration, _ := strconv.Atoi(frontmatter.Extract(data, keyIteration))
	maxIterations, _ := strconv.Atoi(frontmatter.Extract(data, keyMaxIterations))

	return Record{
		ID:            id,
		Iteration:     iteration,
		MaxIterations: maxIterations,
		SkillPath:     frontmatter.Extract(data, keySkillPath),
		SkillName:     name,
	}
}
