// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package persistence

import (
	"context"
	"fmt"

	capi "github.com/hashicorp/consul/api"
)

type consulKV struct {
	kv *capi.KV
}

// OpenConsul dials Consul's KV store and returns a Store backed by it.
func OpenConsul(addr string) (*KVStore, error) {
	cfg := capi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	client, err := capi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("persistence: consul client: %w", err)
	}
	return newKVStore(&consulKV{kv: client.KV()}), nil
}

func (c *consulKV) put(_ context.Context, key string, value []byte) error {
	_, err := c.kv.Put(&capi.KVPair{Key: key, Value: value}, nil)
	return err
}

func (c *consulKV) get(_ context.Context, key string) ([]byte, bool, error) {
	pair, _, err := c.kv.Get(key, nil)
	if err != nil {
		return nil, false, err
	}
	if pair == nil {
		return nil, false, nil
	}
	return pair.Value, true, nil
}

func (c *consulKV) list(_ context.Context, prefix string) (map[string][]byte, error) {
	pairs, _, err := c.kv.List(prefix, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(pairs))
	for _, p := range pairs {
		out[p.Key] = p.Value
	}
	return out, nil
}

func (c *consulKV) close() error { return nil }
