package xquota

import (
	"context"
	"errors"
	"sync"

	pb "go.etcd.io/etcd/api/v3/etcdserverpb"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// fakeEtcd 内存版 etcd，只实现 EtcdStore 用到的语义：
// 全局递增 revision、ModRevision 相等比较、Put/Delete。
type fakeEtcd struct {
	mu     sync.Mutex
	rev    int64
	kvs    map[string]*mvccpb.KeyValue
	leases int64
	txns   int
	err    error
}

func newFakeEtcd() *fakeEtcd {
	return &fakeEtcd{kvs: make(map[string]*mvccpb.KeyValue)}
}

var errFakeEtcdDown = errors.New("fake etcd: connection refused")

func (f *fakeEtcd) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeEtcd) Get(_ context.Context, key string, _ ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	resp := &clientv3.GetResponse{}
	if kv, ok := f.kvs[key]; ok {
		cp := *kv
		resp.Kvs = []*mvccpb.KeyValue{&cp}
	}
	return resp, nil
}

func (f *fakeEtcd) Delete(_ context.Context, key string, _ ...clientv3.OpOption) (*clientv3.DeleteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	delete(f.kvs, key)
	f.rev++
	return &clientv3.DeleteResponse{}, nil
}

func (f *fakeEtcd) Grant(_ context.Context, _ int64) (*clientv3.LeaseGrantResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.leases++
	return &clientv3.LeaseGrantResponse{ID: clientv3.LeaseID(f.leases)}, nil
}

func (f *fakeEtcd) Txn(context.Context) clientv3.Txn {
	return &fakeTxn{etcd: f}
}

func (f *fakeEtcd) value(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if kv, ok := f.kvs[key]; ok {
		return string(kv.Value)
	}
	return ""
}

type fakeTxn struct {
	etcd  *fakeEtcd
	cmps  []clientv3.Cmp
	thens []clientv3.Op
	elses []clientv3.Op
}

func (t *fakeTxn) If(cs ...clientv3.Cmp) clientv3.Txn {
	t.cmps = append(t.cmps, cs...)
	return t
}

func (t *fakeTxn) Then(ops ...clientv3.Op) clientv3.Txn {
	t.thens = append(t.thens, ops...)
	return t
}

func (t *fakeTxn) Else(ops ...clientv3.Op) clientv3.Txn {
	t.elses = append(t.elses, ops...)
	return t
}

func (t *fakeTxn) Commit() (*clientv3.TxnResponse, error) {
	f := t.etcd
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.txns++

	ok := true
	for i := range t.cmps {
		cmp := (*pb.Compare)(&t.cmps[i])
		var current int64
		if kv, exists := f.kvs[string(cmp.Key)]; exists {
			current = kv.ModRevision
		}
		if cmp.Target != pb.Compare_MOD || cmp.Result != pb.Compare_EQUAL || current != cmp.GetModRevision() {
			ok = false
			break
		}
	}

	ops := t.thens
	if !ok {
		ops = t.elses
	}
	for _, op := range ops {
		if !op.IsPut() {
			continue
		}
		f.rev++
		key := string(op.KeyBytes())
		kv, exists := f.kvs[key]
		if !exists {
			kv = &mvccpb.KeyValue{Key: []byte(key), CreateRevision: f.rev}
			f.kvs[key] = kv
		}
		kv.Value = append([]byte(nil), op.ValueBytes()...)
		kv.ModRevision = f.rev
		kv.Version++
	}
	return &clientv3.TxnResponse{Succeeded: ok}, nil
}

var _ EtcdClient = (*fakeEtcd)(nil)
