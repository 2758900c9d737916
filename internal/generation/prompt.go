package generation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/skillroad/skillroad/internal/models"
)

var (
	frontendFrameworks = []string{"React", "Vue", "Angular", "Svelte", "Next.js", "Nuxt.js"}
	backendFrameworks  = []string{"Express.js", "Django", "Flask", "Spring Boot", "FastAPI", "Rails", "NestJS", "Laravel"}
)

// Request is the user's description of the roadmap to generate.
type Request struct {
	RoadmapName     string
	SkillLevel      models.SkillLevel
	IncludeProjects bool
	TechStack       models.TechStack
}

const responseSchema = `Return a JSON response in this exact format:
{
  "title": "string",
  "description": "string",
  "totalDuration": "string (e.g., '12 weeks')",
  "stages": [
    {
      "stageTitle": "string",
      "duration": "string (e.g., '2 weeks')",
      "topics": [
        {
          "topicTitle": "string",
          "resources": ["resource1", "resource2"],
          "category": "language|framework|library|database|devops|other",
          "project": "string (only if includeProjects=true)"
        }
      ]
    }
  ]
}`

// BuildPrompt renders the generation instruction for req.
func BuildPrompt(req Request) string {
	frontend, backend, other := splitFrameworks(req.TechStack.Frameworks)

	var b strings.Builder
	b.WriteString("You are an expert software engineering learning assistant.\n")
	b.WriteString("Generate a structured learning roadmap for a user with the following inputs:\n")
	fmt.Fprintf(&b, "- Roadmap Name: %s\n", req.RoadmapName)
	fmt.Fprintf(&b, "- Skill Level: %s\n", req.SkillLevel)
	fmt.Fprintf(&b, "- Include Projects: %t\n", req.IncludeProjects)
	b.WriteString("- Tech Stack:\n")
	fmt.Fprintf(&b, "  - Languages: %s\n", joinOrNone(req.TechStack.Languages))
	fmt.Fprintf(&b, "  - Frontend Frameworks: %s\n", joinOrNone(frontend))
	fmt.Fprintf(&b, "  - Backend Frameworks: %s\n", joinOrNone(backend))
	if len(other) > 0 {
		fmt.Fprintf(&b, "  - Other Frameworks: %s\n", joinOrNone(other))
	}
	fmt.Fprintf(&b, "  - Libraries: %s\n", joinOrNone(req.TechStack.Libraries))
	fmt.Fprintf(&b, "  - Databases: %s\n", joinOrNone(req.TechStack.Databases))
	fmt.Fprintf(&b, "  - DevOps & Cloud: %s\n", joinOrNone(req.TechStack.DevOps))
	fmt.Fprintf(&b, "  - Other Tech: %s\n", joinOrNone(req.TechStack.OtherTech))
	b.WriteString("\n")
	b.WriteString(responseSchema)
	b.WriteString("\n\n")
	b.WriteString("Make sure to provide practical, real-world resources like documentation links, tutorials, and courses. ")
	b.WriteString("Keep the roadmap comprehensive but achievable for the specified skill level.")
	return b.String()
}

func splitFrameworks(frameworks []string) (frontend, backend, other []string) {
	for _, framework := range frameworks {
		switch {
		case slices.Contains(frontendFrameworks, framework):
			frontend = append(frontend, framework)
		case slices.Contains(backendFrameworks, framework):
			backend = append(backend, framework)
		default:
			other = append(other, framework)
		}
	}
	return frontend, backend, other
}

func joinOrNone(values []string) string {
	joined := strings.Join(values, ", ")
	if joined == "" {
		return "None"
	}
	return joined
}
