package notifications

import "fmt"

func PurchaseConfirmed(item string) (string, string) {
	return "Your purchase is confirmed",
		fmt.Sprintf("<h1>Thank you!</h1><p>Your payment for <b>%s</b> has been received. You can start learning right away.</p>", item)
}

func CommissionEarned(amount string) (string, string) {
	return "You've earned an affiliate commission!",
		fmt.Sprintf("<h1>Congratulations!</h1><p>Someone you referred has made their first purchase. A commission of €%s has been added to your affiliate balance.</p>", amount)
}

func PayoutProcessed(amount, status string, notes *string) (string, string) {
	body := fmt.Sprintf("<p>Your payout request for €%s has been <b>%s</b>.</p>", amount, status)
	if notes != nil && *notes != "" {
		body += fmt.Sprintf("<p>Notes from the admin: %s</p>", *notes)
	}
	return "Update on your payout request", body
}

func PendingPayoutsDigest(count int, total string) (string, string) {
	return fmt.Sprintf("%d payout request(s) awaiting review", count),
		fmt.Sprintf("<p>There are <b>%d</b> pending affiliate payout requests totalling €%s.</p><p>Review them in the admin dashboard.</p>", count, total)
}
