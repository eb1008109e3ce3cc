package jobs

import (
	"context"
	"fmt"
	"strconv"

	"chitfund-backend/internal/domain"
	"chitfund-backend/internal/logger"
)

// SendOverdueReminders notifies every member whose current-cycle
// contribution in an active group is overdue.
func (jr *JobRunner) SendOverdueReminders() {
	jr.runWithRecovery("SendOverdueReminders", func() {
		res, err := jr.sendOverdueReminders(context.Background())
		if err != nil {
			logger.Error("Failed to query active groups", "error", err)
			return
		}
		logger.Info("Sent overdue reminders", "count", res.Processed, "failed", res.Failed)
	})
}

func (jr *JobRunner) sendOverdueReminders(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	groups, err := jr.groups.ListByStatus(ctx, domain.GroupStatusActive)
	if err != nil {
		return res, err
	}
	asOf := jr.now().UTC()
	log := logger.WithJob("SendOverdueReminders")

	for i := range groups {
		g := &groups[i]
		overdue, err := jr.services.Collections.OverdueForGroup(ctx, g, asOf)
		if err != nil {
			res.Failed++
			log.Error("Failed to reconcile group", "group_id", g.ID, "error", err)
			continue
		}
		for _, o := range overdue {
			note := &domain.Notification{
				RecipientID: o.MemberID,
				Template:    domain.TemplateOverdueNotice,
				Message: fmt.Sprintf("Your contribution to %s for cycle %d was due on %s. Fine so far: %s.",
					g.Name, o.Cycle, o.DueDate.Format("2006-01-02"), o.Fine.StringFixed(2)),
				Attributes: map[string]string{
					"group_id":  strconv.Itoa(int(g.ID)),
					"cycle":     strconv.Itoa(int(o.Cycle)),
					"days_late": strconv.Itoa(o.DaysLate),
					"fine":      o.Fine.StringFixed(2),
				},
			}
			if err := jr.notifier.Notify(ctx, note); err != nil {
				res.Failed++
				log.Error("Failed to send overdue reminder",
					"group_id", g.ID,
					"member_id", o.MemberID,
					"error", err)
				continue
			}
			res.Processed++
			log.Debug("Sent overdue reminder", "group_id", g.ID, "member_id", o.MemberID)
		}
	}
	return res, nil
}
