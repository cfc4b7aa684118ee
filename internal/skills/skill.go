package skills

const MetadataFile = "SKILL.md"

type Skill struct {
	Name        string
	Description string
	Path        string
}

func (s *Skill) MetadataPath() string {
	return joinMetadata(s.Path)
}
