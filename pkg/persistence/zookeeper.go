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
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
)

type zookeeperKV struct {
	conn *zk.Conn
}

// OpenZookeeper dials a Zookeeper ensemble and returns a Store backed by
// it. Unlike etcd/Consul, Zookeeper has no native key-prefix scan, so
// list walks the znode tree rooted at prefix.
func OpenZookeeper(servers []string, sessionTimeout time.Duration) (*KVStore, error) {
	conn, _, err := zk.Connect(servers, sessionTimeout)
	if err != nil {
		return nil, fmt.Errorf("persistence: zookeeper connect: %w", err)
	}
	return newKVStore(&zookeeperKV{conn: conn}), nil
}

func (z *zookeeperKV) ensurePath(path string) error {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	cur := ""
	for _, p := range parts[:len(parts)-1] {
		cur += "/" + p
		exists, _, err := z.conn.Exists(cur)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := z.conn.Create(cur, nil, 0, zk.WorldACL(zk.PermAll)); err != nil && err != zk.ErrNodeExists {
				return err
			}
		}
	}
	return nil
}

func (z *zookeeperKV) put(_ context.Context, key string, value []byte) error {
	path := "/" + key
	if err := z.ensurePath(path); err != nil {
		return err
	}
	exists, stat, err := z.conn.Exists(path)
	if err != nil {
		return err
	}
	if !exists {
		_, err := z.conn.Create(path, value, 0, zk.WorldACL(zk.PermAll))
		return err
	}
	_, err = z.conn.Set(path, value, stat.Version)
	return err
}

func (z *zookeeperKV) get(_ context.Context, key string) ([]byte, bool, error) {
	data, _, err := z.conn.Get("/" + key)
	if err != nil {
		if err == zk.ErrNoNode {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (z *zookeeperKV) list(_ context.Context, prefix string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	var walk func(path string) error
	walk = func(path string) error {
		children, _, err := z.conn.Children(path)
		if err != nil {
			if err == zk.ErrNoNode {
				return nil
			}
			return err
		}
		for _, child := range children {
			childPath := path + "/" + child
			data, _, err := z.conn.Get(childPath)
			if err != nil {
				return err
			}
			if len(data) > 0 {
				out[strings.TrimPrefix(childPath, "/")] = data
			}
			if err := walk(childPath); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk("/" + strings.TrimSuffix(prefix, "/")); err != nil {
		return nil, err
	}
	return out, nil
}

func (z *zookeeperKV) close() error {
	z.conn.Close()
	return nil
}
