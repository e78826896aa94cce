package document

import (
	"fmt"
	"math"

	"github.com/nimburion/docspec/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// maxNativeCount bounds skip and limit values. The wire protocol carries them as 32-bit
// integers.
const maxNativeCount = math.MaxInt32

// FindOptions converts repository options into driver find options. Values beyond the
// native integer width and unknown sort directions fail with repository.ErrInvalidOption.
func FindOptions(opts ...repository.Option) (*options.FindOptions, error) {
	find := options.Find()
	for _, opt := range opts {
		switch o := opt.(type) {
		case repository.OffsetOption:
			if o.Offset < 0 || o.Offset > maxNativeCount {
				return nil, fmt.Errorf("%w: offset %d outside [0, %d]", repository.ErrInvalidOption, o.Offset, maxNativeCount)
			}
			find.SetSkip(o.Offset)
		case repository.LimitOption:
			if o.Limit < 0 || o.Limit > maxNativeCount {
				return nil, fmt.Errorf("%w: limit %d outside [0, %d]", repository.ErrInvalidOption, o.Limit, maxNativeCount)
			}
			find.SetLimit(o.Limit)
		case repository.SortOption:
			sort, err := sortDocument(o)
			if err != nil {
				return nil, err
			}
			find.SetSort(sort)
		case nil:
			return nil, fmt.Errorf("%w: nil option", repository.ErrInvalidOption)
		default:
			return nil, fmt.Errorf("%w: unsupported option %T", repository.ErrInvalidOption, opt)
		}
	}
	return find, nil
}

func sortDocument(opt repository.SortOption) (bson.D, error) {
	sort := make(bson.D, 0, len(opt.Attributes))
	for _, attr := range opt.Attributes {
		if attr.Attribute == "" {
			return nil, fmt.Errorf("%w: sort attribute is empty", repository.ErrInvalidOption)
		}
		switch attr.Direction {
		case repository.Ascending:
			sort = append(sort, bson.E{Key: attr.Attribute, Value: 1})
		case repository.Descending:
			sort = append(sort, bson.E{Key: attr.Attribute, Value: -1})
		default:
			return nil, fmt.Errorf("%w: unsupported sort direction %q for %s",
				repository.ErrInvalidOption, attr.Direction, attr.Attribute)
		}
	}
	return sort, nil
}
