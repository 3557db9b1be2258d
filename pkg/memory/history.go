package memory

// pushTurn appends a turn to the record's history ring, evicting the
// oldest turn once the ring is full.
func pushTurn(rec *UserRecord, turn ConversationTurn) {
	rec.History = append(rec.History, turn)
	if len(rec.History) > HistoryCapacity {
		rec.History = rec.History[len(rec.History)-HistoryCapacity:]
	}
}
