package trip

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbt "tripsplit/db/db"
)

// MemberBalance is one participant's share of the final settlement.
type MemberBalance struct {
	Paid             decimal.Decimal
	Owes             decimal.Decimal
	Collects         decimal.Decimal
	PaymentConfirmed bool
}

// TotalPaid sums AmountPaid over the paid items of a trip.
func TotalPaid(items []dbt.Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.IsPaid {
			total = total.Add(item.AmountPaid)
		}
	}
	return total
}

// ComputeSplit divides the total paid amount evenly across all participants
// and reports, per participant, what they paid, what they still owe and what
// they collect from the others. An empty map is returned when the trip has
// no participants.
func ComputeSplit(memberships []dbt.Membership, items []dbt.Item) map[uuid.UUID]MemberBalance {
	balance := make(map[uuid.UUID]MemberBalance)
	if len(memberships) == 0 {
		return balance
	}

	totalPaid := TotalPaid(items)
	splitAmount := totalPaid.Div(decimal.NewFromInt(int64(len(memberships))))

	for _, m := range memberships {
		memberPaid := decimal.Zero
		for _, item := range items {
			if item.IsPaid && item.PayerID != nil && *item.PayerID == m.UserID {
				memberPaid = memberPaid.Add(item.AmountPaid)
			}
		}

		owes := decimal.Zero
		collects := decimal.Zero
		if memberPaid.LessThan(splitAmount) {
			owes = splitAmount.Sub(memberPaid)
		} else if memberPaid.GreaterThan(splitAmount) {
			collects = memberPaid.Sub(splitAmount)
		}

		balance[m.UserID] = MemberBalance{
			Paid:             memberPaid,
			Owes:             owes,
			Collects:         collects,
			PaymentConfirmed: m.PaymentConfirmed,
		}
	}
	return balance
}

// CompleteRatio is the percentage of items already paid, 0 for an itemless trip.
func CompleteRatio(items []dbt.Item) float64 {
	if len(items) == 0 {
		return 0
	}
	paid := 0
	for _, item := range items {
		if item.IsPaid {
			paid++
		}
	}
	return float64(paid) / float64(len(items)) * 100
}

// ConfirmedRatio is the percentage of members that confirmed their payment,
// 0 for a memberless trip.
func ConfirmedRatio(memberships []dbt.Membership) float64 {
	if len(memberships) == 0 {
		return 0
	}
	confirmed := 0
	for _, m := range memberships {
		if m.PaymentConfirmed {
			confirmed++
		}
	}
	return float64(confirmed) / float64(len(memberships)) * 100
}
