package domain

import "math/rand"

var habitDoneReplies = []string{
	"Nice work!",
	"Way to go!",
	"Keep it up!",
	"Another one down!",
	"You're on a roll.",
}

var habitCommitReplies = []string{
	"You've committed. Make it happen!",
	"Commitment registered. Go get it.",
	"Locked in for today.",
	"It's a promise, then.",
}

var taskDoneReplies = []string{
	"Task complete!",
	"Done and dusted.",
	"Crossed off the list.",
	"One less thing to do.",
}

func randomReply(replies []string) string {
	return replies[rand.Intn(len(replies))]
}

// HabitDoneReply returns a celebratory message for marking a habit done.
func HabitDoneReply() string { return randomReply(habitDoneReplies) }

// HabitCommitReply returns a message for committing to a habit day.
func HabitCommitReply() string { return randomReply(habitCommitReplies) }
