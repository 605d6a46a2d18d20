package eligibility

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/go-cmp/cmp"

	"github.com/yuanjian-org/app-sub000/internal/model"
)

func strPtr(s string) *string { return &s }

func ids(users []model.User) []string {
	out := []string{}
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	phone := strPtr("+8613800138000")
	email := strPtr("a@test.com")

	tests := []struct {
		name      string
		users     []model.User
		typ       model.NotificationType
		wantSMS   []string
		wantEmail []string
	}{
		{
			name:      "nil preference is eligible on both channels",
			users:     []model.User{{ID: "a", Phone: phone, Email: email}},
			typ:       model.TypeChat,
			wantSMS:   []string{"a"},
			wantEmail: []string{"a"},
		},
		{
			name: "sms disabled for type keeps email",
			users: []model.User{{ID: "a", Phone: phone, Email: email, Preference: &model.Preference{
				SMSDisabled: []model.NotificationType{model.TypeChat},
			}}},
			typ:       model.TypeChat,
			wantSMS:   []string{},
			wantEmail: []string{"a"},
		},
		{
			name: "email disabled for type keeps sms",
			users: []model.User{{ID: "a", Phone: phone, Email: email, Preference: &model.Preference{
				EmailDisabled: []model.NotificationType{model.TypeTodo},
			}}},
			typ:       model.TypeTodo,
			wantSMS:   []string{"a"},
			wantEmail: []string{},
		},
		{
			name: "disabled list for another type has no effect",
			users: []model.User{{ID: "a", Phone: phone, Email: email, Preference: &model.Preference{
				SMSDisabled:   []model.NotificationType{model.TypeLike},
				EmailDisabled: []model.NotificationType{model.TypeLike},
			}}},
			typ:       model.TypeChat,
			wantSMS:   []string{"a"},
			wantEmail: []string{"a"},
		},
		{
			name: "base tag suppresses every type",
			users: []model.User{{ID: "a", Phone: phone, Email: email, Preference: &model.Preference{
				SMSDisabled: []model.NotificationType{model.TypeBase},
			}}},
			typ:       model.TypeGeneral,
			wantSMS:   []string{},
			wantEmail: []string{"a"},
		},
		{
			name: "base tag plus specific type still suppressed",
			users: []model.User{{ID: "a", Phone: phone, Email: email, Preference: &model.Preference{
				SMSDisabled: []model.NotificationType{model.TypeBase, model.TypeGeneral},
			}}},
			typ:       model.TypeGeneral,
			wantSMS:   []string{},
			wantEmail: []string{"a"},
		},
		{
			name: "missing contact info is silently excluded",
			users: []model.User{
				{ID: "no-phone", Email: email},
				{ID: "no-email", Phone: phone},
				{ID: "empty", Phone: strPtr(""), Email: strPtr("")},
			},
			typ:       model.TypeGeneral,
			wantSMS:   []string{"no-email"},
			wantEmail: []string{"no-phone"},
		},
		{
			name: "end to end roster",
			users: []model.User{
				{ID: "A", Phone: phone, Email: email},
				{ID: "B", Phone: strPtr("+15550100"), Preference: &model.Preference{
					SMSDisabled: []model.NotificationType{model.TypeInternalNote},
				}},
			},
			typ:       model.TypeInternalNote,
			wantSMS:   []string{"A"},
			wantEmail: []string{"A"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(tt.users, tt.typ)
			if diff := cmp.Diff(tt.wantSMS, ids(got.SMS)); diff != "" {
				t.Errorf("Filter() sms mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantEmail, ids(got.Email)); diff != "" {
				t.Errorf("Filter() email mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilter_StableOrderAndChannelIndependence(t *testing.T) {
	f := gofakeit.New(42)
	types := []model.NotificationType{
		model.TypeGeneral, model.TypeLike, model.TypeTodo, model.TypeInternalNote, model.TypeChat,
	}

	users := make([]model.User, 200)
	for i := range users {
		u := model.User{ID: f.UUID()}
		if f.Bool() {
			u.Phone = strPtr("+86" + f.Numerify("1##########"))
		}
		if f.Bool() {
			u.Email = strPtr(f.Email())
		}
		if f.Bool() {
			u.Preference = &model.Preference{}
			for _, typ := range append(types, model.TypeBase) {
				if f.Number(0, 3) == 0 {
					u.Preference.SMSDisabled = append(u.Preference.SMSDisabled, typ)
				}
				if f.Number(0, 3) == 0 {
					u.Preference.EmailDisabled = append(u.Preference.EmailDisabled, typ)
				}
			}
		}
		users[i] = u
	}

	for _, typ := range types {
		got := Filter(users, typ)

		var wantSMS, wantEmail []string
		for _, u := range users {
			if u.HasPhone() && u.Preference.SMSAllowed(typ) {
				wantSMS = append(wantSMS, u.ID)
			}
			if u.HasEmail() && u.Preference.EmailAllowed(typ) {
				wantEmail = append(wantEmail, u.ID)
			}
		}
		if diff := cmp.Diff(append([]string{}, wantSMS...), ids(got.SMS)); diff != "" {
			t.Errorf("type %s: sms mismatch (-want +got):\n%s", typ, diff)
		}
		if diff := cmp.Diff(append([]string{}, wantEmail...), ids(got.Email)); diff != "" {
			t.Errorf("type %s: email mismatch (-want +got):\n%s", typ, diff)
		}

		// Flipping the email preferences never changes the SMS result.
		flipped := make([]model.User, len(users))
		for i, u := range users {
			flipped[i] = u
			if u.Preference != nil {
				p := *u.Preference
				p.EmailDisabled = []model.NotificationType{model.TypeBase}
				flipped[i].Preference = &p
			}
		}
		if diff := cmp.Diff(ids(got.SMS), ids(Filter(flipped, typ).SMS)); diff != "" {
			t.Errorf("type %s: sms result depends on email preference:\n%s", typ, diff)
		}
	}
}
