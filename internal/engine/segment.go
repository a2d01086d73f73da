package engine

// Segment is the half-open byte range [Start, End) owned by one stream.
type Segment struct {
	Stream int
	Start  int64
	End    int64
}

// Len returns the number of bytes in the segment.
func (s Segment) Len() int64 {
	return s.End - s.Start
}

// Plan partitions [0, size) into streams contiguous segments. Every
// segment is floor(size/streams) bytes except the last, which absorbs the
// remainder. When size < streams the tail segments are empty; workers
// treat an empty segment as an immediate success.
func Plan(size int64, streams int) []Segment {
	per := size / int64(streams)

	segments := make([]Segment, streams)
	for i := range streams {
		start := int64(i) * per
		end := start + per
		if i == streams-1 {
			end = size
		}
		segments[i] = Segment{Stream: i, Start: start, End: end}
	}
	return segments
}
