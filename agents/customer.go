package agents

import "github.com/crisis-labs/crisisflow/core"

// CustomerServiceCall decides whether to notify the customer and what
// compensation to offer, based on the finance verdict. VIP customers and
// tight SLAs always get notified. Compensation escalates only when the
// finances do not hold: VIPs get a coupon, everyone else free shipping.
func CustomerServiceCall(order core.OrderContext, finance core.FinanceAssessment) core.CustomerServiceDecision {
	notify := order.IsVIP || order.SLAHours <= 24

	compensation := "no-comp"
	if !finance.OK {
		if order.IsVIP {
			compensation = "10% coupon"
		} else {
			compensation = "free shipping"
		}
	}

	message := "delay is minimal, no notification required"
	if notify {
		message = "notify about the delay and offer compensation"
	}

	vote := 0.6
	if finance.OK {
		vote = 0.8
	}

	return core.CustomerServiceDecision{
		NotifyCustomer: notify,
		Compensation:   compensation,
		Message:        message,
		Vote:           vote,
	}
}
