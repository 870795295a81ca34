package codec

import "time"

// JulianToTime converts a YYDDD date to the calendar day it stands for.
// Day 0 of a year is the last day of the previous year.
func JulianToTime(yyddd int) time.Time {
	return time.Date(2000+yyddd/1000, time.January, yyddd%1000, 0, 0, 0, 0, time.UTC)
}

// TimeToJulian converts a calendar day to YYDDD form.
func TimeToJulian(t time.Time) int {
	return (t.Year()%100)*1000 + t.YearDay()
}

// SliderToJulian maps a date slider position in [0, 2] to a YYDDD date:
// 0..1 covers 2015, 1..2 covers 2016.
func SliderToJulian(v float64) int {
	if v <= 1 {
		return int(15000 + v*daysPerYear)
	}
	return int(16000 + (v-1)*daysPerYear)
}
