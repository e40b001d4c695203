// Package sentmark remembers which birthday occurrences were already
// reminded, so a restart or a manual trigger on the same day does not
// email twice.
package sentmark

import (
	"fmt"
	"time"

	"github.com/djlord-it/birthday-reminder/internal/domain"
)

// DefaultTTL outlives the seven-day horizon with a day of slack.
const DefaultTTL = 8 * 24 * time.Hour

// Key identifies one occurrence: a record and the birthday date it is due for.
func Key(job domain.NotificationJob) string {
	return fmt.Sprintf("birthday:sent:%s:%s", job.Record.ID, job.TargetDate.Format(domain.DateLayout))
}
