package notifier

import (
	"fmt"
	"strings"

	"github.com/djlord-it/birthday-reminder/internal/domain"
)

// ComposeMessage renders the reminder email for job.
func ComposeMessage(cfg Config, job domain.NotificationJob) Message {
	name := job.Record.Name
	on := job.TargetDate.Format("Monday, January 2")

	var body strings.Builder
	fmt.Fprintf(&body, "Just a reminder that %s's birthday is %s on %s!", name, horizonPhrase(cfg.HorizonDays), on)
	if age := job.Record.AgeOn(job.TargetDate); age > 0 {
		fmt.Fprintf(&body, "\n\n%s turns %d.", name, age)
	}
	body.WriteString("\n")

	return Message{
		From:    cfg.From,
		To:      cfg.To,
		Subject: "Upcoming Birthday Reminder: " + name,
		Body:    body.String(),
	}
}

func horizonPhrase(days int) string {
	switch days {
	case 0, 7:
		return "in exactly one week"
	case 1:
		return "tomorrow"
	case 14:
		return "in exactly two weeks"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}
