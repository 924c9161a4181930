// Package group implements spec component F: splitting duplicate clusters
// by their intended destination, so the planner can operate one
// destination bucket at a time.
package group

import (
	"strings"

	"github.com/kergoth/archive-cp/internal/destmap"
	"github.com/kergoth/archive-cp/internal/namegrammar"
	"github.com/kergoth/archive-cp/internal/orderedmap"
	"github.com/kergoth/archive-cp/internal/pathutil"
)

// Cluster is a destination-bucket-local duplicate cluster: a subset of an
// original DuplicateCluster whose members all resolved to the same
// destination-bucket key.
type Cluster struct {
	Members []string
}

// Buckets splits each input duplicate cluster by destination-bucket key and
// returns the resulting relpath -> clusters mapping. A single input cluster
// contributes one Cluster per distinct key its members resolve to, so it
// may appear split across multiple buckets when its members disagree on
// destination (e.g. distinct filenames that happen to be byte-identical).
func Buckets(clusters [][]string, target string, dm *destmap.Map, ignoreCase bool) (*orderedmap.Map[[]Cluster], error) {
	out := orderedmap.New[[]Cluster]()

	for _, cluster := range clusters {
		sub := orderedmap.New[[]string]()
		for _, member := range cluster {
			key, err := bucketKey(member, target, dm, ignoreCase)
			if err != nil {
				return nil, err
			}
			members, _ := sub.Get(key)
			sub.Set(key, append(members, member))
		}
		for _, key := range sub.Keys() {
			members, _ := sub.Get(key)
			existing, _ := out.Get(key)
			out.Set(key, append(existing, Cluster{Members: members}))
		}
	}

	return out, nil
}

// bucketKey computes the destination-bucket key for one cluster member: its
// target-relative natural name if already under target, or its mapped
// destination's target-relative path otherwise. Under ignoreCase, the key
// is lowercased.
func bucketKey(path, target string, dm *destmap.Map, ignoreCase bool) (string, error) {
	var key string
	if pathutil.IsRelativeTo(path, target) {
		key = namegrammar.BaseName(pathutil.RelativeTo(path, target))
	} else {
		dest, err := dm.Destination(path)
		if err != nil {
			return "", err
		}
		key = pathutil.RelativeTo(dest, target)
	}
	if ignoreCase {
		key = strings.ToLower(key)
	}
	return key, nil
}
