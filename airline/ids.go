package airline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Identifier floors: the first flight is F600, the first order O500.
const (
	FlightNumberFloor = 600
	OrderIDFloor      = 500
)

// NextFlightNumber scans existing flight numbers and returns F<max+1>, or
// F600 when nothing at or above the floor exists. It is not gap-free or
// race-free; InsertFlight reports ErrIdentifierCollision on a clash.
func NextFlightNumber(ctx context.Context, s Store) (FlightNumber, error) {
	numbers, err := s.FlightNumbers(ctx)
	if err != nil {
		return "", fmt.Errorf("scan flight numbers: %w", err)
	}
	ids := make([]string, len(numbers))
	for i, n := range numbers {
		ids[i] = string(n)
	}
	return FlightNumber(nextID("F", FlightNumberFloor, ids)), nil
}

// NextOrderID is NextFlightNumber for orders: O<max+1>, floor O500.
func NextOrderID(ctx context.Context, s Store) (OrderID, error) {
	orders, err := s.OrderIDs(ctx)
	if err != nil {
		return "", fmt.Errorf("scan order ids: %w", err)
	}
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = string(o)
	}
	return OrderID(nextID("O", OrderIDFloor, ids)), nil
}

// nextID ignores ids without the prefix or a leading run of digits after it.
func nextID(prefix string, floor int, existing []string) string {
	max := floor - 1
	for _, id := range existing {
		if n, ok := parseSeq(prefix, id); ok && n > max {
			max = n
		}
	}
	return prefix + strconv.Itoa(max+1)
}

func parseSeq(prefix, id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok {
		return 0, false
	}
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
