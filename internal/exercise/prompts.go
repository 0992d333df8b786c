package exercise

// PromptTexts are the built-in daily prompt texts per type. Generation picks
// the next one by how many prompts of that type already exist.
var PromptTexts = map[PromptType][]string{
	PromptReflection: {
		"Which situation moved you most emotionally today? Why?",
		"What did you learn today that could help you in the future?",
		"Which thoughts kept you busy the most today?",
		"How did you react to stress today? What could you do differently?",
		"Which decision did you make today that you should rethink?",
	},
	PromptGratitude: {
		"Name three things you are grateful for today and why.",
		"Which person has influenced your life in a positive way? What are you grateful to them for?",
		"Which small joy did you experience today that you would usually overlook?",
		"What are you grateful to yourself for? Which of your qualities do you value?",
		"Which challenge made you grateful for what you have?",
	},
	PromptChallenge: {
		"Try a new relaxation technique today.",
		"Talk to someone today you would not usually talk to.",
		"Take 10 minutes today for a mindfulness exercise.",
		"Write a letter to your future self. What advice would you give?",
		"Skip social media today. How does it feel?",
	},
	PromptMindfulness: {
		"Pay attention to your breath today. How does it change during the day?",
		"Take time while eating to taste and enjoy every bite.",
		"Pick an everyday object and observe it with all your senses.",
		"Watch your thoughts like clouds in the sky without judging them.",
		"Take a moment to notice your current posture.",
	},
}

// NextPromptType rotates reflection, gratitude, challenge, mindfulness.
// With no previous prompt it starts at reflection.
func NextPromptType(last *DailyPrompt) PromptType {
	if last == nil {
		return PromptReflection
	}
	for i, t := range PromptTypes {
		if t == last.Type {
			return PromptTypes[(i+1)%len(PromptTypes)]
		}
	}
	return PromptReflection
}

// PromptContent picks the text for the n-th prompt of type t.
func PromptContent(t PromptType, used int) string {
	texts := PromptTexts[t]
	if len(texts) == 0 {
		return ""
	}
	if used < 0 {
		used = 0
	}
	return texts[used%len(texts)]
}
