package service

import (
	"fmt"
	"net/url"

	"skillsprint/internal/models"
)

// phase is one block of a generated 30-day plan
type phase struct {
	Name  string
	Focus string
	Steps []string
}

var generatorPhases = []phase{
	{
		Name:  "Foundations",
		Focus: "learn the vocabulary and the shape of %s",
		Steps: []string{"Map the territory", "Core vocabulary", "Set up your tools", "First small attempt", "Find three great teachers", "Write your learning plan"},
	},
	{
		Name:  "Core Practice",
		Focus: "build the basic moves of %s through deliberate repetition",
		Steps: []string{"Drill the fundamentals", "Copy a master", "Timed practice", "Slow it down", "Practice the hard part", "Record yourself"},
	},
	{
		Name:  "Build",
		Focus: "combine what you know into something real in %s",
		Steps: []string{"Pick a mini project", "Sketch the plan", "Build the first piece", "Build the second piece", "Put it together", "Polish one detail"},
	},
	{
		Name:  "Apply",
		Focus: "use %s in a new context and under constraints",
		Steps: []string{"Change the context", "Work under a constraint", "Solve a real problem", "Collaborate or get feedback", "Teach a friend", "Stretch goal"},
	},
	{
		Name:  "Review",
		Focus: "consolidate %s and plan what comes next",
		Steps: []string{"Review your notes", "Redo day one", "Fix your weakest area", "Share your work", "Reflect on the month", "Plan the next sprint"},
	},
}

// extensionTemplate is one day appended by the sprint extender
type extensionTemplate struct {
	Title       string
	Description string
	Content     string
}

var extensionTemplates = []extensionTemplate{
	{
		Title:       "Review & Reflect",
		Description: "Look back at what you've done so far and write down what stuck.",
		Content:     "Spend 20 minutes reviewing your earlier days. Note one thing that got easier and one that still feels hard.",
	},
	{
		Title:       "Teach It Back",
		Description: "Explain today's topic to someone else, or to an empty room.",
		Content:     "Pick one concept and explain it out loud in under five minutes. Where you stumble is where to practice next.",
	},
	{
		Title:       "Speed Round",
		Description: "Repeat a familiar exercise as quickly as you can while staying accurate.",
		Content:     "Choose an exercise from an earlier day, set a timer, and try to beat your last time without cutting corners.",
	},
	{
		Title:       "Mini Project",
		Description: "Make something small and complete in one sitting.",
		Content:     "Scope a project you can finish in 45 minutes. Finishing matters more than ambition today.",
	},
	{
		Title:       "Fix a Weakness",
		Description: "Spend the session on the part you usually avoid.",
		Content:     "Identify the skill you skip most often and give it a full, focused session.",
	},
	{
		Title:       "Stretch Challenge",
		Description: "Attempt something slightly beyond your current level.",
		Content:     "Find an example that is a little too hard and work through as much of it as you can. Struggle is the point.",
	},
	{
		Title:       "Share Your Work",
		Description: "Show someone what you've made and ask for one piece of feedback.",
		Content:     "Post your progress or send it to a friend. Write down the feedback you get and one change you'll make.",
	},
}

func extensionChallenge(sprint *models.Sprint, day int) *models.Challenge {
	tmpl := extensionTemplates[(day-1)%len(extensionTemplates)]
	return &models.Challenge{
		SprintID:    sprint.ID,
		Day:         day,
		Title:       fmt.Sprintf("Day %d: %s", day, tmpl.Title),
		Description: tmpl.Description,
		Content:     tmpl.Content,
		Resources:   searchResources(sprint.Title + " " + tmpl.Title),
	}
}

// generatedChallenges builds one challenge per day for skill
func generatedChallenges(sprintID int64, skill string, duration int) []*models.Challenge {
	perPhase := duration / len(generatorPhases)
	if perPhase < 1 {
		perPhase = 1
	}

	challenges := make([]*models.Challenge, 0, duration)
	for day := 1; day <= duration; day++ {
		pi := (day - 1) / perPhase
		if pi >= len(generatorPhases) {
			pi = len(generatorPhases) - 1
		}
		ph := generatorPhases[pi]
		step := ph.Steps[(day-1)%len(ph.Steps)]

		challenges = append(challenges, &models.Challenge{
			SprintID:    sprintID,
			Day:         day,
			Title:       fmt.Sprintf("%s: %s", ph.Name, step),
			Description: fmt.Sprintf("Day %d of your %s sprint. Today: %s.", day, skill, step),
			Content: fmt.Sprintf("This phase is about the goal to %s. Spend 20 to 45 focused minutes on \"%s\" and write one sentence about how it went.",
				fmt.Sprintf(ph.Focus, skill), step),
			Resources: searchResources(skill + " " + step),
		})
	}
	return challenges
}

func searchResources(topic string) []models.Resource {
	q := url.QueryEscape(topic)
	return []models.Resource{
		{Title: "Video tutorials", URL: "https://www.youtube.com/results?search_query=" + q},
		{Title: "Articles", URL: "https://duckduckgo.com/?q=" + q},
		{Title: "Background reading", URL: "https://en.wikipedia.org/w/index.php?search=" + q},
	}
}

// curatedSprint is an entry of the public catalog seeded at startup
type curatedSprint struct {
	Title       string
	Skill       string
	Description string
	Category    string
	Difficulty  string
	CoverImage  string
}

var curatedCatalog = []curatedSprint{
	{
		Title:       "30 Days of Python",
		Skill:       "Python programming",
		Description: "Go from zero to writing small useful scripts, one short exercise a day.",
		Category:    "Technology",
		Difficulty:  models.DifficultyBeginner,
		CoverImage:  "/static/img/covers/python.svg",
	},
	{
		Title:       "Public Speaking Bootcamp",
		Skill:       "public speaking",
		Description: "Build confidence in front of an audience with daily speaking drills.",
		Category:    "Communication",
		Difficulty:  models.DifficultyBeginner,
		CoverImage:  "/static/img/covers/speaking.svg",
	},
	{
		Title:       "Watercolor Basics",
		Skill:       "watercolor painting",
		Description: "Learn washes, layering and color mixing through small daily studies.",
		Category:    "Art",
		Difficulty:  models.DifficultyBeginner,
		CoverImage:  "/static/img/covers/watercolor.svg",
	},
	{
		Title:       "Conversational Spanish",
		Skill:       "Spanish conversation",
		Description: "Practice speaking and listening a little every day until small talk feels natural.",
		Category:    "Languages",
		Difficulty:  models.DifficultyIntermediate,
		CoverImage:  "/static/img/covers/spanish.svg",
	},
	{
		Title:       "Data Structures Deep Dive",
		Skill:       "data structures and algorithms",
		Description: "Implement and analyze a classic data structure or algorithm each day.",
		Category:    "Technology",
		Difficulty:  models.DifficultyAdvanced,
		CoverImage:  "/static/img/covers/algorithms.svg",
	},
	{
		Title:       "Daily Sketching Habit",
		Skill:       "sketching",
		Description: "Fill a sketchbook: one focused drawing exercise a day.",
		Category:    "Art",
		Difficulty:  models.DifficultyBeginner,
		CoverImage:  "/static/img/covers/sketching.svg",
	},
}
