package dgraph

import (
	"github.com/dgraph-io/dgo/v200"
	"github.com/dgraph-io/dgo/v200/protos/api"
	"google.golang.org/grpc"
)

// Dg is dGraph client.
var Dg *dgo.Dgraph

var conn *grpc.ClientConn

// Open connecting to dGraph.
func Open(RPCAddr string) error {
	c, err := grpc.Dial(RPCAddr, grpc.WithInsecure())
	if err != nil {
		return err
	}

	conn = c
	Dg = dgo.NewDgraphClient(api.NewDgraphClient(c))
	return nil
}

// Enabled reports whether Open succeeded.
func Enabled() bool {
	return Dg != nil
}

func Close() error {
	if conn == nil {
		return nil
	}
	Dg = nil
	return conn.Close()
}
