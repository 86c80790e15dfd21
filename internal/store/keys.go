package store

// Key naming conventions shared by every component. The layout is part
// of the external contract: other processes (and other implementations
// of this queue) address the same keys.

// RecordKey returns the key for a job record: {queue}:{id}
func RecordKey(queue, id string) string { return queue + ":" + id }

// IDsKey returns the FIFO pending-id list key: {queue}:ids
func IDsKey(queue string) string { return queue + ":ids" }
