package socialupgrade

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
)

type activityFile struct {
	Activities []*models.SocialActivity `yaml:"activities"`
}

// LoadActivities reads historical activities from a YAML file of the form
//
//	activities:
//	  - companyId: 1
//	    userId: 42
//	    createDate: 1714564800000
//	    classNameId: 10010
//	    classPK: 7
//	    type: 1
func LoadActivities(path string) ([]*models.SocialActivity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open activities: %w", err)
	}
	defer f.Close()

	activities, err := ReadActivities(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return activities, nil
}

// ReadActivities decodes the activity list from r. Unknown keys are rejected.
func ReadActivities(r io.Reader) ([]*models.SocialActivity, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file activityFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse activities: %w", err)
	}
	for i, a := range file.Activities {
		if a == nil {
			return nil, fmt.Errorf("activity %d is empty", i)
		}
		if a.CreateDate <= 0 {
			return nil, fmt.Errorf("activity %d: createDate must be positive epoch milliseconds", i)
		}
	}
	return file.Activities, nil
}
