package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"mindwellAPI/internal/achievement"
	"mindwellAPI/internal/breathing"
	"mindwellAPI/internal/chat"
	"mindwellAPI/internal/exercise"
)

var seedNamespace = uuid.MustParse("0b6f3a52-8f0e-4c57-9a0c-6a3f1f1d2e10")

// SeedID derives a stable ID for catalog rows so re-seeding overwrites them in place.
func SeedID(kind, name string) string {
	return uuid.NewSHA1(seedNamespace, []byte(kind+":"+name)).String()
}

var seedExercises = []exercise.Exercise{
	{
		Title:           "Mindfulness Meditation",
		Description:     "A foundational meditation for bringing mindful attention into everyday life.",
		Type:            exercise.TypeMeditation,
		DurationMinutes: 10,
		Points:          15,
		Content: "1. Sit comfortably with a straight back.\n" +
			"2. Close your eyes or lower your gaze.\n" +
			"3. Rest your attention on the breath.\n" +
			"4. When the mind wanders, notice it kindly and return to the breath.",
	},
	{
		Title:           "Gratitude Journal",
		Description:     "Write down what you are grateful for to train attention on the positive.",
		Type:            exercise.TypeJournaling,
		DurationMinutes: 15,
		Points:          10,
		Content: "Write three things you are grateful for today.\n" +
			"For each, note why it matters to you and how it made you feel.",
	},
	{
		Title:           "Progressive Muscle Relaxation",
		Description:     "Tense and release muscle groups one after another to let go of physical tension.",
		Type:            exercise.TypeBehavioral,
		DurationMinutes: 20,
		Points:          20,
		Content: "Start with your feet. Tense the muscles for five seconds, then release for ten.\n" +
			"Move up through calves, thighs, stomach, hands, arms, shoulders and face.",
	},
	{
		Title:           "Challenging Thoughts",
		Description:     "A cognitive exercise for spotting and reframing unhelpful thoughts.",
		Type:            exercise.TypeCognitive,
		DurationMinutes: 25,
		Points:          25,
		Content: "1. Write down a situation that upset you.\n" +
			"2. Note the automatic thought.\n" +
			"3. List evidence for and against it.\n" +
			"4. Write a more balanced alternative thought.",
	},
	{
		Title:           "Deep Belly Breathing",
		Description:     "Slow diaphragmatic breathing to calm the nervous system.",
		Type:            exercise.TypeBreathwork,
		DurationMinutes: 5,
		Points:          10,
		Content: "Place one hand on your chest and one on your belly.\n" +
			"Breathe in through the nose so only the belly rises, then exhale slowly through the mouth.",
	},
}

var seedAchievements = []achievement.Achievement{
	{Title: "First Steps", Description: "Complete your first exercise.", Icon: "footsteps", Category: achievement.CategoryMilestones, RequiredValue: 1, Points: 10},
	{Title: "On Your Way", Description: "Complete 10 exercises.", Icon: "trail-sign", Category: achievement.CategoryMilestones, RequiredValue: 10, Points: 25},
	{Title: "Meditation Beginner", Description: "Complete 5 meditation exercises.", Icon: "leaf", Category: achievement.CategoryMeditation, RequiredValue: 5, Points: 25},
	{Title: "Meditation Master", Description: "Complete 30 meditation exercises.", Icon: "flower", Category: achievement.CategoryMeditation, RequiredValue: 30, Points: 100},
	{Title: "Journaling Pro", Description: "Complete 10 journaling exercises.", Icon: "book", Category: achievement.CategoryJournaling, RequiredValue: 10, Points: 30},
	{Title: "Persistent", Description: "Keep a 7 day streak.", Icon: "flame", Category: achievement.CategoryStreak, RequiredValue: 7, Points: 50},
	{Title: "Unstoppable", Description: "Keep a 30 day streak.", Icon: "rocket", Category: achievement.CategoryStreak, RequiredValue: 30, Points: 200},
	{Title: "Level Up", Description: "Reach level 5.", Icon: "trophy", Category: achievement.CategoryLevel, RequiredValue: 5, Points: 100},
}

type seedTechnique struct {
	technique       breathing.Technique
	recommendations []breathing.Recommendation
}

var seedTechniques = []seedTechnique{
	{
		technique: breathing.Technique{
			Name: "4-7-8", Description: "A calming technique that relieves stress and helps you fall asleep.",
			Inhale: 4, HoldIn: 7, Exhale: 8, HoldOut: 0, Cycles: 4, Duration: 3, Difficulty: breathing.Beginner,
			Benefits: "Reduces stress\nHelps with falling asleep\nEases anxiety",
		},
		recommendations: []breathing.Recommendation{{Condition: "stress", Priority: 1}, {Condition: "insomnia", Priority: 1}, {Condition: "anxiety", Priority: 2}},
	},
	{
		technique: breathing.Technique{
			Name: "Box Breathing", Description: "Equal four-count phases used to stay calm and focused under pressure.",
			Inhale: 4, HoldIn: 4, Exhale: 4, HoldOut: 4, Cycles: 5, Duration: 4, Difficulty: breathing.Intermediate,
			Benefits: "Improves focus\nSteadies performance under pressure\nReduces stress",
		},
		recommendations: []breathing.Recommendation{{Condition: "focus", Priority: 1}, {Condition: "performance", Priority: 1}, {Condition: "stress", Priority: 2}},
	},
	{
		technique: breathing.Technique{
			Name: "Deep Belly Breathing", Description: "Slow diaphragmatic breathing for deep relaxation.",
			Inhale: 4, HoldIn: 0, Exhale: 6, HoldOut: 2, Cycles: 10, Duration: 5, Difficulty: breathing.Beginner,
			Benefits: "Promotes relaxation\nEasy for beginners\nLowers heart rate",
		},
		recommendations: []breathing.Recommendation{{Condition: "relaxation", Priority: 1}, {Condition: "beginner", Priority: 1}, {Condition: "stress", Priority: 3}},
	},
	{
		technique: breathing.Technique{
			Name: "Wim Hof Method", Description: "Rapid rhythmic breathing for energy and resilience.",
			Inhale: 2, HoldIn: 0, Exhale: 2, HoldOut: 0, Cycles: 30, Duration: 7, Difficulty: breathing.Advanced,
			Benefits: "Boosts energy\nBuilds resilience\nSupports the immune system",
		},
		recommendations: []breathing.Recommendation{{Condition: "energy", Priority: 1}, {Condition: "performance", Priority: 2}, {Condition: "immune system", Priority: 1}},
	},
	{
		technique: breathing.Technique{
			Name: "Alternate Nostril Breathing", Description: "Breathing through one nostril at a time to restore balance.",
			Inhale: 4, HoldIn: 4, Exhale: 4, HoldOut: 0, Cycles: 10, Duration: 5, Difficulty: breathing.Intermediate,
			Benefits: "Restores balance\nImproves concentration\nCalms the mind",
		},
		recommendations: []breathing.Recommendation{{Condition: "balance", Priority: 1}, {Condition: "focus", Priority: 2}, {Condition: "relaxation", Priority: 2}},
	},
}

var seedAssistantPrompts = []chat.AssistantPrompt{
	{Title: "Help with anxiety", Prompt: "I feel very anxious right now. Can you suggest techniques to calm down?", Category: chat.CategoryMentalHealth},
	{Title: "Trouble sleeping", Prompt: "I have trouble falling asleep. Which relaxation techniques could help?", Category: chat.CategoryTherapy},
	{Title: "Negative thoughts", Prompt: "I have a lot of negative thoughts. How can I reframe them?", Category: chat.CategoryTherapy},
	{Title: "Finding motivation", Prompt: "I feel unmotivated and listless. What can I do about it?", Category: chat.CategoryMotivation},
	{Title: "Meditation for beginners", Prompt: "I want to start meditating. Can you give me a simple guide?", Category: chat.CategoryMeditation},
	{Title: "Stress at work", Prompt: "I feel very stressed at work. What strategies can help me cope?", Category: chat.CategoryMentalHealth},
	{Title: "Handling conflict", Prompt: "I have a conflict with someone close to me. How can I keep the conversation constructive?", Category: chat.CategoryGeneral},
}

// Seed writes the static catalog. Running it again rewrites the same rows.
func Seed(ctx context.Context, s Store) error {
	return s.WithTx(ctx, func(q Queries) error {
		for _, e := range seedExercises {
			e.ID = SeedID("exercise", e.Title)
			if err := q.SaveExercise(ctx, &e); err != nil {
				return fmt.Errorf("failed to seed exercise %q: %w", e.Title, err)
			}
		}

		for _, a := range seedAchievements {
			a.ID = SeedID("achievement", a.Title)
			if err := q.SaveAchievement(ctx, &a); err != nil {
				return fmt.Errorf("failed to seed achievement %q: %w", a.Title, err)
			}
		}

		for _, st := range seedTechniques {
			t := st.technique
			t.ID = SeedID("technique", t.Name)
			t.IsActive = true
			if err := q.SaveTechnique(ctx, &t); err != nil {
				return fmt.Errorf("failed to seed technique %q: %w", t.Name, err)
			}
			for _, r := range st.recommendations {
				r.ID = SeedID("recommendation", t.Name+"/"+r.Condition)
				r.TechniqueID = t.ID
				if err := q.SaveRecommendation(ctx, &r); err != nil {
					return fmt.Errorf("failed to seed recommendation %q: %w", r.Condition, err)
				}
			}
		}

		for _, p := range seedAssistantPrompts {
			p.ID = SeedID("assistant_prompt", p.Title)
			p.IsActive = true
			if err := q.SaveAssistantPrompt(ctx, &p); err != nil {
				return fmt.Errorf("failed to seed assistant prompt %q: %w", p.Title, err)
			}
		}
		return nil
	})
}
