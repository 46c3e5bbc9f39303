package unconsole

type Summary struct {
	Root      string
	Scanned   int
	Modified  []string
	Failed    []string
	Removed   int
	DryRun    bool
	HistoryID string
	Message   string
}

func summaryFromResult(root string, res Result, dryRun bool) Summary {
	s := Summary{
		Root:     root,
		Scanned:  res.Scanned,
		Modified: res.Changed,
		Removed:  res.Removed,
		DryRun:   dryRun,
	}
	for _, f := range res.Failed {
		s.Failed = append(s.Failed, f.Error())
	}
	return s
}
