package repository

import "context"

// OriginSource tells stores where a write came from.
type OriginSource int

const (
	OriginLocal OriginSource = iota
	OriginDirectoryUser
	OriginDirectoryGroup
)

func (s OriginSource) String() string {
	switch s {
	case OriginDirectoryUser:
		return "directory_user"
	case OriginDirectoryGroup:
		return "directory_group"
	default:
		return "local"
	}
}

// Origin marks writes made on behalf of a directory import. Stores and
// their listeners use it to avoid exporting the change back to the directory.
type Origin struct {
	Source   OriginSource
	ServerID int64
}

// FromDirectory reports whether the write originates from a directory import.
func (o Origin) FromDirectory() bool {
	return o.Source != OriginLocal
}

type originKey struct{}

// WithOrigin returns a context carrying the origin marker. The marker lives
// exactly as long as the returned context.
func WithOrigin(ctx context.Context, origin Origin) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

// OriginFrom extracts the origin marker. Without one the origin is local.
func OriginFrom(ctx context.Context) Origin {
	if origin, ok := ctx.Value(originKey{}).(Origin); ok {
		return origin
	}
	return Origin{}
}
