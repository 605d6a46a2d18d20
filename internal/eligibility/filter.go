// Package eligibility decides which users may receive a notification on
// each channel.
package eligibility

import "github.com/yuanjian-org/app-sub000/internal/model"

// Result holds the users eligible for each channel, in input order.
// A user may appear in both lists.
type Result struct {
	SMS   []model.User
	Email []model.User
}

// Filter partitions users by channel eligibility for notification type t.
// A user is eligible for a channel when they have an address on it and
// neither model.TypeBase nor t is in that channel's disabled list.
func Filter(users []model.User, t model.NotificationType) Result {
	var res Result
	for _, u := range users {
		if u.HasPhone() && u.Preference.SMSAllowed(t) {
			res.SMS = append(res.SMS, u)
		}
		if u.HasEmail() && u.Preference.EmailAllowed(t) {
			res.Email = append(res.Email, u)
		}
	}
	return res
}
