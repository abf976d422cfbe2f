package week

// DayFormats holds every display form of one target-week date,
// precomputed once so prompts, summaries and reports never re-derive a
// label after midnight has moved the wall clock past the snapshot.
type DayFormats struct {
	Key     string // YYYYMMDD
	DayName string // Пн..Вс
	Display string // DD.MM.YYYY
	Short   string // DD.MM
}

// Formats is the per-week lookup table that replaces a process-wide
// date-formatting cache. Its lifetime is bound to one order session: it
// is built at session start and dropped at commit or cancel, so there is
// nothing to invalidate globally.
type Formats struct {
	Days  [7]DayFormats
	byKey map[string]DayFormats
}

func BuildFormats(tw TargetWeek) *Formats {
	f := &Formats{byKey: make(map[string]DayFormats, 7)}
	for i, day := range tw.Days {
		df := DayFormats{
			Key:     tw.Keys[i],
			DayName: DayNames[i],
			Display: day.Format("02.01.2006"),
			Short:   day.Format("02.01"),
		}
		f.Days[i] = df
		f.byKey[df.Key] = df
	}
	return f
}

// ByKey returns the formats for a date key and whether it belongs to
// this week.
func (f *Formats) ByKey(key string) (DayFormats, bool) {
	df, ok := f.byKey[key]
	return df, ok
}
