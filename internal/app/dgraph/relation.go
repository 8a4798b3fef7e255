package dgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/dgo/v200/protos/api"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"server-reward-engine/internal/dao"
	"server-reward-engine/internal/pkg/util"
)

// RelationSep used split two user when using string to represent relation.
const (
	RelationSep    = ","
	facetsTotalKey = "total"

	schema = `
name: string @index(exact) .
cons: [uid] @reverse .
`
)

type link struct {
	UID   string `json:"uid"`
	Total string `json:"cons|total"`
}

type node struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
	Cons []link `json:"cons,omitempty"`
}

func blank(id uint64) string {
	return "_:c" + strconv.FormatUint(id, 10)
}

// BuildMutation turns referral edges into dgraph JSON nodes. The facet on each
// referrer to customer link carries the customer's unsettled rewards.
func BuildMutation(edges []dao.ReferralEdge) ([]byte, error) {
	nodes := make(map[uint64]*node, len(edges))
	order := make([]uint64, 0, len(edges))
	for _, e := range edges {
		nodes[e.ID] = &node{UID: blank(e.ID), Name: strconv.FormatUint(e.ID, 10)}
		order = append(order, e.ID)
	}
	for _, e := range edges {
		if e.ReferredBy == nil {
			continue
		}
		father, ok := nodes[*e.ReferredBy]
		if !ok || *e.ReferredBy == e.ID {
			continue
		}
		father.Cons = append(father.Cons, link{UID: blank(e.ID), Total: e.TotalRewards.StringFixed(2)})
	}

	out := make([]*node, 0, len(order))
	for _, id := range order {
		out = append(out, nodes[id])
	}
	return json.Marshal(out)
}

// SyncRelations replaces the graph with the current referral tree. The graph only mirrors
// the customer store, so it is dropped and rewritten on every sync.
func SyncRelations(ctx context.Context, edges []dao.ReferralEdge) error {
	if Dg == nil {
		return errors.New("dgraph not opened")
	}
	b, err := BuildMutation(edges)
	if err != nil {
		return errors.Wrap(err, "build mutation")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err = Dg.Alter(ctx, &api.Operation{DropAll: true}); err != nil {
		return errors.Wrap(err, "drop graph")
	}
	if err = Dg.Alter(ctx, &api.Operation{Schema: schema}); err != nil {
		return errors.Wrap(err, "alter schema")
	}
	_, err = Dg.NewTxn().Mutate(ctx, &api.Mutation{SetJson: b, CommitNow: true})
	return errors.Wrap(err, "mutate relations")
}

// ListRelation list all relation with it's point.
func ListRelation(ctx context.Context, pageSize int) (map[string]decimal.Decimal, error) {
	if Dg == nil {
		return nil, errors.New("dgraph not opened")
	}
	first := pageSize
	offset := 0
	relationValueMapper := make(map[string]decimal.Decimal)

	for {
		var q = fmt.Sprintf(`
query data() {
	data(func: has(name), first:%d, offset:%d) {
		n:name
	    l:cons @facets(v:%s) {
			n:name
	    }
	}
}`, first, offset, facetsTotalKey)
		offset += first
		qctx, cancel := context.WithTimeout(ctx, time.Minute)
		resp, err := Dg.NewReadOnlyTxn().BestEffort().Query(qctx, q)
		cancel()
		if err != nil {
			return nil, errors.Wrap(err, "query relation")
		}

		type Root struct {
			Users []UserResp `json:"data"`
		}

		var r Root
		err = json.Unmarshal(resp.Json, &r)
		if err != nil {
			return nil, errors.Wrap(err, "json unmarshal")
		}
		if len(r.Users) == 0 {
			break
		}

		if err = collectRelations(r.Users, relationValueMapper); err != nil {
			return nil, err
		}
	}

	return relationValueMapper, nil
}

// collectRelations adds every parent to child link of us to out. A link without a
// facet counts as zero.
func collectRelations(us []UserResp, out map[string]decimal.Decimal) (err error) {
	UserResp{}.Walk(us, 0, func(u UserResp, depth int) {
		for i, child := range u.Links {
			if err != nil {
				return
			}
			k := u.Name + RelationSep + child.Name
			v, ok := u.Point[strconv.Itoa(i)]
			if !ok {
				out[k] = decimal.Zero
				continue
			}
			var d decimal.Decimal
			if d, err = util.ParseAmount(v); err != nil {
				err = errors.WithMessagef(err, "facet of %s", k)
				return
			}
			out[k] = d
		}
	})
	return
}
