package services

import (
	"fmt"

	"mindwellAPI/internal/notification"
	"mindwellAPI/internal/user"
)

const signature = "\n\nBest regards,\nThe MindWell team"

func displayName(u *user.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}

func welcomeEmail(u *user.User) notification.Email {
	return notification.Email{
		To:      u.Email,
		Subject: "Welcome to MindWell!",
		Body: fmt.Sprintf("Hello %s,\n\nwelcome to MindWell! We are glad you are here.\n\n"+
			"With the app you can:\n- work through therapy exercises\n- chat with the assistant\n"+
			"- track your mood\n- follow your progress\n- relax with breathing exercises\n\n"+
			"If you have any questions, just reply to this email.", displayName(u)) + signature,
	}
}

func passwordResetEmail(u *user.User, link string) notification.Email {
	return notification.Email{
		To:      u.Email,
		Subject: "Reset your password",
		Body: fmt.Sprintf("Hello,\n\nyou asked to reset your password. Open the link below to choose a new one:\n\n%s\n\n"+
			"The link is valid for 24 hours. If you did not ask for this, you can ignore this email.", link) + signature,
	}
}

func streakReminderEmail(u *user.User, streak int) notification.Email {
	return notification.Email{
		To:      u.Email,
		Subject: fmt.Sprintf("Don't forget to continue your %d-day streak!", streak),
		Body: fmt.Sprintf("Hello %s,\n\njust a quick reminder: you are on a %d-day streak!\n"+
			"Do an exercise today to keep it going.", displayName(u), streak) + signature,
	}
}

func levelUpEmail(u *user.User, level int) notification.Email {
	return notification.Email{
		To:      u.Email,
		Subject: fmt.Sprintf("Congratulations! You reached level %d!", level),
		Body:    fmt.Sprintf("Hello %s,\n\ncongratulations! You reached level %d in MindWell.\n\nKeep up the good work!", displayName(u), level) + signature,
	}
}
