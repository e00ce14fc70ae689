package ipc

import (
	"bytes"
	"errors"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGetStats(t *testing.T) {
	td := newTestDevice(t, nil)

	result, err := td.ioctl(t, IOCtlGetStats, nil, statsLayout.Size())
	if err != nil || result != ResultOK {
		t.Fatalf("GET_STATS = %v, %v", result, err)
	}
	var got []uint32
	for i := uint32(0); i < 7; i++ {
		got = append(got, td.word(t, testOutAddr+4*i))
	}
	if diff := cmp.Diff(getStatsWords[:], got); diff != "" {
		t.Errorf("GET_STATS words mismatch (-want +got):\n%s", diff)
	}

	result, _ = td.ioctl(t, IOCtlGetStats, nil, 16)
	if result != ResultInvalidArgument {
		t.Errorf("GET_STATS with a 16-byte output = %v, want FS_INVALID_ARGUMENT", result)
	}
}

func TestCreateDir(t *testing.T) {
	td := newTestDevice(t, nil)

	for i := 0; i < 2; i++ {
		result, err := td.ioctl(t, IOCtlCreateDir, createDirRecord("/shared2/menu/FaceLib"), 0)
		if err != nil || result != ResultOK {
			t.Fatalf("CREATE_DIR pass %d = %v, %v", i, result, err)
		}
	}
	if info, err := os.Stat(td.host("shared2", "menu", "FaceLib")); err != nil || !info.IsDir() {
		t.Errorf("CREATE_DIR did not create the directory: %v", err)
	}

	result, _ := td.ioctl(t, IOCtlCreateDir, createDirRecord("/../outside"), 0)
	if result != ResultInvalidArgument {
		t.Errorf("CREATE_DIR above the root = %v, want FS_INVALID_ARGUMENT", result)
	}

	result, _ = td.ioctl(t, IOCtlCreateDir, createDirRecord("relative/dir"), 0)
	if result != ResultInvalidArgument {
		t.Errorf("CREATE_DIR with a relative path = %v, want FS_INVALID_ARGUMENT", result)
	}
	if _, err := os.Stat(td.host("relative")); !os.IsNotExist(err) {
		t.Error("CREATE_DIR with a relative path touched the host filesystem")
	}

	result, _ = td.ioctl(t, IOCtlCreateDir, createDirRecord("/short")[:20], 0)
	if result != ResultInvalidArgument {
		t.Errorf("CREATE_DIR with a short input = %v, want FS_INVALID_ARGUMENT", result)
	}
}

func TestSetAttrIsIgnored(t *testing.T) {
	td := newTestDevice(t, nil)

	result, err := td.ioctl(t, IOCtlSetAttr, attrRecord("/shared2/sys/SYSCONF"), 0)
	if err != nil || result != ResultOK {
		t.Fatalf("SET_ATTR = %v, %v", result, err)
	}
	if _, err := os.Stat(td.host("shared2")); !os.IsNotExist(err) {
		t.Error("SET_ATTR touched the host filesystem")
	}

	result, _ = td.ioctl(t, IOCtlSetAttr, []byte{1, 2}, 0)
	if result != ResultOK {
		t.Errorf("SET_ATTR with a short input = %v, want FS_RESULT_OK", result)
	}
}

func TestGetAttr(t *testing.T) {
	td := newTestDevice(t, nil)
	writeHostFile(t, td.host("title", "save.bin"), 8)

	tests := []struct {
		name string
		path string
		want Result
	}{
		{"file", "/title/save.bin", ResultOK},
		{"directory", "/title", ResultOK},
		{"missing", "/title/none.bin", ResultFileNotExist},
		{"escape", "/../x", ResultInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := td.ioctl(t, IOCtlGetAttr, pathRecord(tt.path), attrRecordLayout.Size())
			if err != nil || result != tt.want {
				t.Fatalf("GET_ATTR(%s) = %v, %v; want %v", tt.path, result, err, tt.want)
			}
			if result != ResultOK {
				return
			}

			out, _ := td.mem.ReadBytes(testOutAddr, attrRecordLayout.Size())
			r, _ := attrRecordLayout.Unmarshal(out)
			for _, perm := range []string{"owner_perm", "group_perm", "other_perm"} {
				if r.Uint(perm) != 3 {
					t.Errorf("%s = %d, want 3", perm, r.Uint(perm))
				}
			}
			if r.Uint("attribs") != 0 || r.Uint("owner_id") != 0 {
				t.Errorf("attribs = %d, owner_id = %d; want 0 and 0", r.Uint("attribs"), r.Uint("owner_id"))
			}
			if got := string(bytes.TrimRight(r.Bytes("path"), "\x00")); got != tt.path {
				t.Errorf("path = %q, want %q", got, tt.path)
			}
		})
	}
}

func TestGetAttrRejectsWrongOutputSize(t *testing.T) {
	td := newTestDevice(t, nil)
	writeHostFile(t, td.host("file.bin"), 1)

	for _, size := range []uint32{0, 40, 75, 80} {
		result, _ := td.ioctl(t, IOCtlGetAttr, pathRecord("/file.bin"), size)
		if result != ResultInvalidArgument {
			t.Errorf("GET_ATTR with a %d-byte output = %v, want FS_INVALID_ARGUMENT", size, result)
		}
	}
}

func TestCreateFile(t *testing.T) {
	td := newTestDevice(t, nil)
	path := td.host("title", "00010000", "data", "banner.bin")

	result, err := td.ioctl(t, IOCtlCreateFile, attrRecord("/title/00010000/data/banner.bin"), 0)
	if err != nil || result != ResultOK {
		t.Fatalf("CREATE_FILE = %v, %v", result, err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() != 0 {
		t.Fatalf("CREATE_FILE left %v, %v; want an empty file", info, err)
	}

	if err := os.WriteFile(path, []byte("keep"), 0644); err != nil {
		t.Fatal(err)
	}
	result, err = td.ioctl(t, IOCtlCreateFile, attrRecord("/title/00010000/data/banner.bin"), 0)
	if err != nil || result != ResultFileExist {
		t.Fatalf("CREATE_FILE on an existing file = %v, %v; want FS_FILE_EXIST", result, err)
	}
	if data, _ := os.ReadFile(path); string(data) != "keep" {
		t.Errorf("CREATE_FILE on an existing file changed its content to %q", data)
	}
}

func TestCreateFileOnDirectoryExists(t *testing.T) {
	td := newTestDevice(t, nil)
	if err := os.MkdirAll(td.host("dir"), 0755); err != nil {
		t.Fatal(err)
	}
	result, err := td.ioctl(t, IOCtlCreateFile, attrRecord("/dir"), 0)
	if err != nil || result != ResultFileExist {
		t.Errorf("CREATE_FILE on a directory = %v, %v; want FS_FILE_EXIST", result, err)
	}
}

func TestCreateFileFatal(t *testing.T) {
	td := newTestDevice(t, nil)
	writeHostFile(t, td.host("blocker"), 4)

	result, err := td.ioctl(t, IOCtlCreateFile, attrRecord("/blocker/child.bin"), 0)
	if result != ResultFatal {
		t.Errorf("CREATE_FILE under a regular file = %v, want FS_RESULT_FATAL", result)
	}
	if !errors.Is(err, ErrFatal) {
		t.Errorf("CREATE_FILE under a regular file error = %v, want ErrFatal", err)
	}
}

func TestDeleteFileAlwaysOK(t *testing.T) {
	td := newTestDevice(t, nil)
	writeHostFile(t, td.host("a", "file.bin"), 4)
	writeHostFile(t, td.host("full", "inner.bin"), 4)

	tests := []struct {
		name    string
		path    string
		removed string
	}{
		{"file", "/a/file.bin", td.host("a", "file.bin")},
		{"empty directory", "/a", td.host("a")},
		{"missing", "/a/never", ""},
		{"non-empty directory", "/full", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := td.ioctl(t, IOCtlDeleteFile, pathRecord(tt.path), 0)
			if err != nil || result != ResultOK {
				t.Fatalf("DELETE_FILE(%s) = %v, %v; want FS_RESULT_OK", tt.path, result, err)
			}
			if tt.removed == "" {
				return
			}
			if _, err := os.Stat(tt.removed); !os.IsNotExist(err) {
				t.Errorf("DELETE_FILE(%s) left %s behind", tt.path, tt.removed)
			}
		})
	}

	if _, err := os.Stat(td.host("full", "inner.bin")); err != nil {
		t.Errorf("DELETE_FILE removed a non-empty directory's content: %v", err)
	}
}

func TestRenameFile(t *testing.T) {
	td := newTestDevice(t, nil)
	src := td.host("tmp", "save.tmp")
	dst := td.host("title", "data", "save.bin")
	writeHostFile(t, dst, 0)
	if err := os.WriteFile(dst, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	writeHostFile(t, src, 0)
	if err := os.WriteFile(src, []byte("new"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := td.ioctl(t, IOCtlRenameFile, renameRecord("/tmp/save.tmp", "/title/data/save.bin"), 0)
	if err != nil || result != ResultOK {
		t.Fatalf("RENAME_FILE = %v, %v", result, err)
	}
	if data, err := os.ReadFile(dst); err != nil || string(data) != "new" {
		t.Errorf("destination = %q, %v; want the source content", data, err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source still exists after RENAME_FILE")
	}
}

func TestRenameFileOntoItself(t *testing.T) {
	td := newTestDevice(t, nil)
	path := td.host("tmp", "save.bin")
	writeHostFile(t, path, 0)
	if err := os.WriteFile(path, []byte("saved"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, dst := range []string{"/tmp/save.bin", "/tmp/./save.bin", "//tmp/save.bin"} {
		result, err := td.ioctl(t, IOCtlRenameFile, renameRecord("/tmp/save.bin", dst), 0)
		if err != nil || result != ResultOK {
			t.Errorf("RENAME_FILE onto %s = %v, %v; want FS_RESULT_OK", dst, result, err)
		}
		if data, err := os.ReadFile(path); err != nil || string(data) != "saved" {
			t.Fatalf("file after RENAME_FILE onto %s = %q, %v", dst, data, err)
		}
	}

	result, err := td.ioctl(t, IOCtlRenameFile, renameRecord("/tmp/none", "/tmp/none"), 0)
	if err != nil || result != ResultFileNotExist {
		t.Errorf("RENAME_FILE of a missing file onto itself = %v, %v; want FS_FILE_NOT_EXIST", result, err)
	}
}

func TestRenameFileCreatesDestinationParents(t *testing.T) {
	td := newTestDevice(t, nil)
	writeHostFile(t, td.host("tmp", "a.bin"), 3)

	result, err := td.ioctl(t, IOCtlRenameFile, renameRecord("/tmp/a.bin", "/deep/er/b.bin"), 0)
	if err != nil || result != ResultOK {
		t.Fatalf("RENAME_FILE = %v, %v", result, err)
	}
	if _, err := os.Stat(td.host("deep", "er", "b.bin")); err != nil {
		t.Errorf("renamed file missing: %v", err)
	}
}

func TestRenameFileMissingSource(t *testing.T) {
	td := newTestDevice(t, nil)

	result, err := td.ioctl(t, IOCtlRenameFile, renameRecord("/tmp/none", "/tmp/other"), 0)
	if err != nil || result != ResultFileNotExist {
		t.Errorf("RENAME_FILE from a missing source = %v, %v; want FS_FILE_NOT_EXIST", result, err)
	}

	result, _ = td.ioctl(t, IOCtlRenameFile, renameRecord("/tmp/none", "/../other"), 0)
	if result != ResultInvalidArgument {
		t.Errorf("RENAME_FILE above the root = %v, want FS_INVALID_ARGUMENT", result)
	}
}

func TestReadDir(t *testing.T) {
	td := newTestDevice(t, nil)
	writeHostFile(t, td.host("title", "a.bin"), 1)
	writeHostFile(t, td.host("title", "banner.bin"), 1)
	writeHostFile(t, td.host("title", "sub", "x"), 1)
	writeHostFile(t, td.host("plain.bin"), 1)

	t.Run("missing", func(t *testing.T) {
		result, _ := td.ioctlv(t, IOCtlVReadDir, pathRecord("/none"), Buffer{Address: testOutAddr, Size: 4})
		if result != ResultDirFileNotFound {
			t.Errorf("READ_DIR = %v, want FS_DIRFILE_NOT_FOUND", result)
		}
	})

	t.Run("not a directory", func(t *testing.T) {
		result, _ := td.ioctlv(t, IOCtlVReadDir, pathRecord("/plain.bin"), Buffer{Address: testOutAddr, Size: 4})
		if result != ResultInvalidArgument {
			t.Errorf("READ_DIR = %v, want FS_INVALID_ARGUMENT", result)
		}
	})

	t.Run("count only", func(t *testing.T) {
		result, err := td.ioctlv(t, IOCtlVReadDir, pathRecord("/title"), Buffer{Address: testOutAddr, Size: 4})
		if err != nil || result != ResultOK {
			t.Fatalf("READ_DIR = %v, %v", result, err)
		}
		if got := td.word(t, testOutAddr); got != 3 {
			t.Errorf("entry count = %d, want 3", got)
		}
	})

	t.Run("names", func(t *testing.T) {
		// The leading path word doubles as the entry limit and is large here
		result, err := td.ioctlv(t, IOCtlVReadDir, pathRecord("/title"),
			Buffer{Address: testOutAddr, Size: 0x100}, Buffer{Address: testOut2Addr, Size: 4})
		if err != nil || result != ResultOK {
			t.Fatalf("READ_DIR = %v, %v", result, err)
		}
		if got := td.word(t, testOut2Addr); got != 3 {
			t.Fatalf("entry count = %d, want 3", got)
		}

		raw, _ := td.mem.ReadBytes(testOutAddr, 0x100)
		names := strings.Split(strings.TrimRight(string(raw), "\x00"), "\x00")
		sort.Strings(names)
		if diff := cmp.Diff([]string{"a.bin", "banner.bin", "sub"}, names); diff != "" {
			t.Errorf("entry names mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("names truncated to the buffer", func(t *testing.T) {
		const names = testOut2Addr + 0x100
		result, err := td.ioctlv(t, IOCtlVReadDir, pathRecord("/title"),
			Buffer{Address: names, Size: 4}, Buffer{Address: testOut2Addr, Size: 4})
		if err != nil || result != ResultOK {
			t.Fatalf("READ_DIR = %v, %v", result, err)
		}
		count := td.word(t, testOut2Addr)
		if count > 1 {
			t.Errorf("entry count = %d, at most one short name fits 4 bytes", count)
		}
		if b, _ := td.mem.Read8(names + 4); b != 0 {
			t.Error("READ_DIR wrote past the end of payload 0")
		}
	})

	t.Run("empty input vector", func(t *testing.T) {
		result, _ := td.ioctlv(t, IOCtlVReadDir, nil, Buffer{Address: testOutAddr, Size: 4})
		if result != ResultInvalidArgument {
			t.Errorf("READ_DIR with an empty input = %v, want FS_INVALID_ARGUMENT", result)
		}
	})

	t.Run("missing count buffer", func(t *testing.T) {
		result, _ := td.ioctlv(t, IOCtlVReadDir, pathRecord("/title"))
		if result != ResultInvalidArgument {
			t.Errorf("READ_DIR without payloads = %v, want FS_INVALID_ARGUMENT", result)
		}
	})
}

func TestReadDirEntryLimit(t *testing.T) {
	td := newTestDevice(t, nil)
	for _, name := range []string{"a", "b", "c", "d"} {
		writeHostFile(t, td.host(name), 1)
	}

	// The limit shares its word with the path; the leading NUL lists the root
	in := pathRecord("/")
	in[0], in[1], in[2], in[3] = 0, 0, 0, 2
	result, err := td.ioctlv(t, IOCtlVReadDir, in,
		Buffer{Address: testOutAddr, Size: 0x40}, Buffer{Address: testOut2Addr, Size: 4})
	if err != nil || result != ResultOK {
		t.Fatalf("READ_DIR = %v, %v", result, err)
	}
	if got := td.word(t, testOut2Addr); got != 2 {
		t.Errorf("entry count = %d, want the limit 2", got)
	}
}

func TestGetUsage(t *testing.T) {
	td := newTestDevice(t, nil)
	writeHostFile(t, td.host("data", "one.bin"), 16384)
	writeHostFile(t, td.host("data", "two.bin"), 16384)
	writeHostFile(t, td.host("plain.bin"), 16384)

	tests := []struct {
		path   string
		blocks uint32
		inodes uint32
	}{
		{"/data", 2, 2},
		{"/plain.bin", 0, 0},
		{"/missing", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			result, err := td.ioctlv(t, IOCtlVGetUsage, pathRecord(tt.path),
				Buffer{Address: testOutAddr, Size: 4}, Buffer{Address: testOut2Addr, Size: 4})
			if err != nil || result != ResultOK {
				t.Fatalf("GETUSAGE = %v, %v", result, err)
			}
			if got := td.word(t, testOutAddr); got != tt.blocks {
				t.Errorf("blocks = %d, want %d", got, tt.blocks)
			}
			if got := td.word(t, testOut2Addr); got != tt.inodes {
				t.Errorf("inodes = %d, want %d", got, tt.inodes)
			}
		})
	}

	result, _ := td.ioctlv(t, IOCtlVGetUsage, nil,
		Buffer{Address: testOutAddr, Size: 4}, Buffer{Address: testOut2Addr, Size: 4})
	if result != ResultInvalidArgument {
		t.Errorf("GETUSAGE with an empty input = %v, want FS_INVALID_ARGUMENT", result)
	}

	result, _ = td.ioctlv(t, IOCtlVGetUsage, pathRecord("/data"), Buffer{Address: testOutAddr, Size: 4})
	if result != ResultInvalidArgument {
		t.Errorf("GETUSAGE with one payload = %v, want FS_INVALID_ARGUMENT", result)
	}
}
