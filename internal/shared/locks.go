package shared

import "fmt"

// ConfirmTokenKey builds redis keys for pending replace confirmations.
func ConfirmTokenKey(token string) string {
	return fmt.Sprintf("payroll:calendar:confirm:%s", token)
}

// HolidayCacheKey builds redis keys for cached holiday sets.
func HolidayCacheKey(companyID int64, year int) string {
	return fmt.Sprintf("holidays:%d:%d", companyID, year)
}
