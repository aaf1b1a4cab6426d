package nm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mitchellh/copystructure"

	"netstate-agent/internal/domain/entities"
	domainErrors "netstate-agent/internal/domain/errors"
	"netstate-agent/internal/domain/scalar"
)

// Options tune profile generation
type Options struct {
	// StableUUID derives the UUID of a new profile from its name and type
	// instead of generating a random one
	StableUUID bool
}

// Compiler turns reconciled interfaces into connection profiles. Existing
// profiles are the starting point of every generated profile, so settings
// the interface does not mention are kept.
type Compiler struct {
	desired  *entities.InterfaceIndex
	current  *entities.InterfaceIndex
	existing map[ProfileKey]*Connection
	opts     Options
}

// NewCompiler creates a Compiler for one pass. desired indexes the
// interfaces changed in the pass and is used to look up controllers.
func NewCompiler(desired, current *entities.InterfaceIndex, existing []*Connection, opts Options) *Compiler {
	byKey := make(map[ProfileKey]*Connection, len(existing))
	for _, conn := range existing {
		if key := conn.Key(); key.ID != "" {
			byKey[key] = conn
		}
	}
	return &Compiler{desired: desired, current: current, existing: byKey, opts: opts}
}

// StableUUID returns the UUID a profile gets in stable mode
func StableUUID(id, nmType string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(nmType+"://"+id)).String()
}

// Compile compiles every interface. Profiles are returned in input order,
// each followed by the auxiliary profiles it owns.
func (c *Compiler) Compile(ifaces entities.Interfaces) ([]*Connection, error) {
	var out []*Connection
	seen := map[ProfileKey]bool{}
	for _, iface := range ifaces {
		conns, err := c.CompileInterface(iface)
		if err != nil {
			return nil, err
		}
		for _, conn := range conns {
			if key := conn.Key(); !seen[key] {
				seen[key] = true
				out = append(out, conn)
			}
		}
	}
	return out, nil
}

// CompileInterface returns the profile of one interface. An OVS bridge
// additionally yields one ovs-port profile per port.
func (c *Compiler) CompileInterface(iface entities.Interface) ([]*Connection, error) {
	base := iface.Base()
	nmType, err := InterfaceTypeToNM(base.Type)
	if err != nil {
		return nil, err
	}
	controller, portType, err := c.controllerOf(base)
	if err != nil {
		return nil, err
	}

	conn, err := c.startFrom(base.Name, nmType)
	if err != nil {
		return nil, err
	}
	c.genConnectionSetting(conn, base, nmType, controller, portType, entities.IsController(iface))

	switch i := iface.(type) {
	case *entities.EthernetInterface:
		genWiredSetting(conn, base)
		genEthernetSettings(conn, i.Ethernet)
	case *entities.VethInterface:
		genWiredSetting(conn, base)
		genEthernetSettings(conn, i.Ethernet)
		if i.Veth != nil {
			conn.Veth = &VethSetting{Peer: i.Veth.Peer}
		}
	case *entities.LinuxBridgeInterface:
		genWiredSetting(conn, base)
		genBridgeSetting(conn, i)
	case *entities.BondInterface:
		genWiredSetting(conn, base)
		genBondSetting(conn, i.Bond)
	case *entities.OvsBridgeInterface:
		genOvsBridgeSetting(conn, i)
	case *entities.OvsInterface:
		genWiredSetting(conn, base)
		genOvsIfaceSetting(conn, i)
	case *entities.VrfInterface:
		genWiredSetting(conn, base)
		if i.Vrf != nil {
			conn.Vrf = &VrfSetting{Table: uint32(i.Vrf.TableID)}
		}
	case *entities.VlanInterface:
		genWiredSetting(conn, base)
		if i.Vlan != nil {
			proto := entities.VlanProtocolIeee8021Q
			if i.Vlan.Protocol != nil {
				proto = *i.Vlan.Protocol
			}
			conn.Vlan = &VlanSetting{
				Parent:   i.Vlan.BaseIface,
				ID:       uint16(i.Vlan.ID),
				Protocol: VlanProtocolToNM(proto),
			}
		}
	case *entities.VxlanInterface:
		genWiredSetting(conn, base)
		genVxlanSetting(conn, i.Vxlan)
	case *entities.MacVlanInterface:
		genWiredSetting(conn, base)
		if err := genMacVlanSetting(conn, i); err != nil {
			return nil, err
		}
	case *entities.InfiniBandInterface:
		genInfiniBandSetting(conn, i)
	case *entities.DummyInterface:
		genWiredSetting(conn, base)
	default:
		return nil, domainErrors.InvalidArgumentf(
			"Interface %s of type %s cannot be compiled", base.Name, base.Type)
	}

	if base.ControllerType == entities.InterfaceTypeLinuxBridge {
		c.genBridgePortSetting(conn, base)
	} else {
		conn.BridgePort = nil
	}
	genIeee8021XSetting(conn, base)
	genOvsExtIDsSetting(conn, base)
	genIPSettings(conn, base, nmType)

	out := []*Connection{conn}
	if bridge, ok := iface.(*entities.OvsBridgeInterface); ok {
		for _, port := range bridge.PortConfs() {
			portConn, err := c.ovsPortConnection(bridge.Name, port)
			if err != nil {
				return nil, err
			}
			out = append(out, portConn)
		}
	}
	return out, nil
}

// AbsentProfileKeys returns the profiles to delete for removed interfaces,
// including the ovs-port profiles owned by a removed OVS bridge
func (c *Compiler) AbsentProfileKeys(absent entities.Interfaces) []ProfileKey {
	var keys []ProfileKey
	seen := map[ProfileKey]bool{}
	add := func(key ProfileKey) {
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	for _, iface := range absent {
		base := iface.Base()
		nmType, ok := interfaceTypes[base.Type]
		if !ok {
			continue
		}
		add(ProfileKey{ID: base.Name, Type: nmType})

		switch base.Type {
		case entities.InterfaceTypeOvsBridge:
			bridge, _ := iface.(*entities.OvsBridgeInterface)
			if cur, ok := c.current.User(base.Name).(*entities.OvsBridgeInterface); ok {
				bridge = cur
			}
			if bridge == nil {
				continue
			}
			for _, port := range bridge.PortConfs() {
				add(ProfileKey{ID: port.Name, Type: TypeOvsPort})
			}
		default:
			cur := c.current.Find(base.Name, base.Type)
			if cur == nil || !cur.Base().HasController() {
				continue
			}
			bridge, ok := c.current.User(*cur.Base().Controller).(*entities.OvsBridgeInterface)
			if !ok {
				continue
			}
			if portName, found := entities.GetOvsPortName(bridge, base.Name, nil); found && portName == base.Name {
				add(ProfileKey{ID: portName, Type: TypeOvsPort})
			}
		}
	}
	return keys
}

func (c *Compiler) startFrom(id, nmType string) (*Connection, error) {
	existing, ok := c.existing[ProfileKey{ID: id, Type: nmType}]
	if !ok {
		return &Connection{}, nil
	}
	copied, err := copystructure.Copy(existing)
	if err != nil {
		return nil, domainErrors.NewSystemError(fmt.Sprintf("failed to copy profile %s/%s", id, nmType), err)
	}
	return copied.(*Connection), nil
}

func (c *Compiler) profileUUID(conn *Connection, id, nmType string) string {
	if conn.Connection != nil && conn.Connection.UUID != "" {
		return conn.Connection.UUID
	}
	if c.opts.StableUUID {
		return StableUUID(id, nmType)
	}
	return uuid.New().String()
}

func (c *Compiler) genConnectionSetting(conn *Connection, base *entities.BaseInterface, nmType, controller, portType string, isController bool) {
	uuidStr := c.profileUUID(conn, base.Name, nmType)
	setting := conn.Connection
	if setting == nil {
		setting = &ConnectionSetting{}
	}
	setting.ID = base.Name
	setting.UUID = uuidStr
	setting.Type = nmType
	setting.InterfaceName = base.Name
	autoconnect := base.EffectiveState() == entities.InterfaceStateUp
	setting.Autoconnect = &autoconnect
	if isController {
		ports := 1
		setting.AutoconnectPorts = &ports
	}
	setting.Controller = controller
	setting.PortType = portType
	conn.Connection = setting
}

// controllerOf returns the connection controller and port type. Interfaces
// attached to an OVS bridge are controlled by their ovs-port profile.
func (c *Compiler) controllerOf(base *entities.BaseInterface) (string, string, error) {
	if !base.HasController() {
		return "", "", nil
	}
	ctrlName := *base.Controller
	switch base.ControllerType {
	case entities.InterfaceTypeOvsBridge:
		current := c.current.User(ctrlName)
		bridge, ok := c.desired.User(ctrlName).(*entities.OvsBridgeInterface)
		if !ok {
			if bridge, ok = current.(*entities.OvsBridgeInterface); !ok {
				return "", "", domainErrors.InvalidArgumentf(
					"OVS bridge %s of interface %s not found", ctrlName, base.Name)
			}
		}
		portName, found := entities.GetOvsPortName(bridge, base.Name, current)
		if !found {
			return "", "", domainErrors.InvalidArgumentf(
				"Failed to find OVS port name for interface %s of OVS bridge %s", base.Name, ctrlName)
		}
		return portName, TypeOvsPort, nil
	case "":
		return "", "", domainErrors.InvalidArgumentf(
			"Controller type of interface %s is not resolved", base.Name)
	}
	portType, err := InterfaceTypeToNM(base.ControllerType)
	if err != nil {
		return "", "", err
	}
	return ctrlName, portType, nil
}

func (c *Compiler) ovsPortConnection(bridgeName string, port entities.OvsBridgePortConfig) (*Connection, error) {
	conn, err := c.startFrom(port.Name, TypeOvsPort)
	if err != nil {
		return nil, err
	}
	portBase := &entities.BaseInterface{Name: port.Name, State: entities.InterfaceStateUp}
	c.genConnectionSetting(conn, portBase, TypeOvsPort, bridgeName, TypeOvsBridge, true)

	setting := conn.OvsPort
	if setting == nil {
		setting = &OvsPortSetting{}
	}
	if bond := port.Bond; bond != nil {
		if bond.Mode != nil {
			switch *bond.Mode {
			case entities.OvsBridgeBondModeLacp:
				setting.Lacp = "active"
				setting.BondMode = ""
			case entities.OvsBridgeBondModeActiveBackup, entities.OvsBridgeBondModeBalanceSlb:
				setting.Lacp = "off"
				setting.BondMode = string(*bond.Mode)
			case entities.OvsBridgeBondModeBalanceTcp:
				setting.Lacp = "active"
				setting.BondMode = string(*bond.Mode)
			}
		}
		setUint(&setting.BondDowndelay, bond.BondDowndelay)
		setUint(&setting.BondUpdelay, bond.BondUpdelay)
		if bond.OvsDB != nil {
			conn.OvsExtIDs = &OvsExtIDsSetting{Data: bond.OvsDB.GetExternalIDs()}
		}
	}
	if vlan := port.Vlan; vlan != nil {
		setUint(&setting.Tag, vlan.Tag)
		if vlan.Mode != nil {
			setting.VlanMode = string(*vlan.Mode)
		}
		if trunks := trunkTagsToNM(vlan.TrunkTags); trunks != nil {
			setting.Trunks = trunks
		}
	}
	conn.OvsPort = setting
	return conn, nil
}

func (c *Compiler) genBridgePortSetting(conn *Connection, base *entities.BaseInterface) {
	bridge, ok := c.desired.Kernel(*base.Controller).(*entities.LinuxBridgeInterface)
	if !ok {
		if bridge, ok = c.current.Kernel(*base.Controller).(*entities.LinuxBridgeInterface); !ok {
			return
		}
	}
	setting := conn.BridgePort
	if setting == nil {
		setting = &BridgePortSetting{}
	}
	if portConf := bridge.GetPortConf(base.Name); portConf != nil {
		setBool(&setting.HairpinMode, portConf.StpHairpinMode)
		setUint(&setting.PathCost, portConf.StpPathCost)
		setUint(&setting.Priority, portConf.StpPriority)
		if portConf.Vlan != nil {
			setting.Vlans = bridgePortVlansToNM(portConf.Vlan)
		}
	}
	conn.BridgePort = setting
}

type unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

func setUint[T, U unsigned](dst **U, v *T) {
	if v != nil {
		u := U(*v)
		*dst = &u
	}
}

func setBool(dst **bool, v *scalar.Bool) {
	if v != nil {
		b := bool(*v)
		*dst = &b
	}
}

func genWiredSetting(conn *Connection, base *entities.BaseInterface) {
	if base.MTU == nil && base.MACAddress == nil {
		return
	}
	setting := conn.Wired
	if setting == nil {
		setting = &WiredSetting{}
	}
	setUint(&setting.MTU, base.MTU)
	if base.MACAddress != nil {
		setting.ClonedMACAddress = *base.MACAddress
	}
	conn.Wired = setting
}

func genEthernetSettings(conn *Connection, conf *entities.EthernetConfig) {
	if conf == nil {
		return
	}
	setting := conn.Wired
	if setting == nil {
		setting = &WiredSetting{}
	}
	setBool(&setting.AutoNegotiate, conf.AutoNegotiation)
	setUint(&setting.Speed, conf.Speed)
	if conf.Duplex != nil {
		setting.Duplex = string(*conf.Duplex)
	}
	conn.Wired = setting

	if conf.SrIov == nil {
		return
	}
	sriov := conn.Sriov
	if sriov == nil {
		sriov = &SriovSetting{}
	}
	setUint(&sriov.TotalVfs, conf.SrIov.TotalVfs)
	if conf.SrIov.Vfs != nil {
		sriov.Vfs = map[string]string{}
		for _, vf := range *conf.SrIov.Vfs {
			sriov.Vfs[strconv.FormatUint(uint64(vf.ID), 10)] = sriovVFToNM(vf)
		}
	}
	conn.Sriov = sriov
}

// sriovVFToNM renders a VF as "mac=... spoof-check=true vlans=102.103"
func sriovVFToNM(vf entities.SrIovVfConfig) string {
	var attrs []string
	if vf.MacAddress != nil {
		attrs = append(attrs, "mac="+*vf.MacAddress)
	}
	if vf.SpoofCheck != nil {
		attrs = append(attrs, fmt.Sprintf("spoof-check=%t", bool(*vf.SpoofCheck)))
	}
	if vf.Trust != nil {
		attrs = append(attrs, fmt.Sprintf("trust=%t", bool(*vf.Trust)))
	}
	if vf.MinTxRate != nil {
		attrs = append(attrs, fmt.Sprintf("min-tx-rate=%d", *vf.MinTxRate))
	}
	if vf.MaxTxRate != nil {
		attrs = append(attrs, fmt.Sprintf("max-tx-rate=%d", *vf.MaxTxRate))
	}
	if vf.VlanID != nil {
		vlan := strconv.FormatUint(uint64(*vf.VlanID), 10)
		if vf.Qos != nil {
			vlan += "." + strconv.FormatUint(uint64(*vf.Qos), 10)
		}
		attrs = append(attrs, "vlans="+vlan)
	}
	return strings.Join(attrs, " ")
}

func genBridgeSetting(conn *Connection, iface *entities.LinuxBridgeInterface) {
	setting := conn.Bridge
	if setting == nil {
		setting = &BridgeSetting{}
	}
	if iface.Bridge != nil && iface.Bridge.Options != nil {
		opts := iface.Bridge.Options
		if stp := opts.Stp; stp != nil {
			setBool(&setting.Stp, stp.Enabled)
			setUint(&setting.Priority, stp.Priority)
			setUint(&setting.ForwardDelay, stp.ForwardDelay)
			setUint(&setting.HelloTime, stp.HelloTime)
			setUint(&setting.MaxAge, stp.MaxAge)
		}
		setUint(&setting.AgeingTime, opts.MacAgeingTime)
		if opts.GroupAddr != nil {
			setting.GroupAddress = *opts.GroupAddr
		}
		setUint(&setting.GroupForwardMask, opts.GroupForwardMask)
		setUint(&setting.MulticastHashMax, opts.HashMax)
		setUint(&setting.MulticastLastMemberCount, opts.MulticastLastMemberCount)
		setUint(&setting.MulticastLastMemberInterval, opts.MulticastLastMemberInterval)
		setUint(&setting.MulticastMembershipInterval, opts.MulticastMembershipInterval)
		setBool(&setting.MulticastQuerier, opts.MulticastQuerier)
		setUint(&setting.MulticastQuerierInterval, opts.MulticastQuerierInterval)
		setUint(&setting.MulticastQueryInterval, opts.MulticastQueryInterval)
		setUint(&setting.MulticastQueryResponseInterval, opts.MulticastQueryResponseInterval)
		setBool(&setting.MulticastQueryUseIfaddr, opts.MulticastQueryUseIfaddr)
		if opts.MulticastRouter != nil {
			setting.MulticastRouter = opts.MulticastRouter.String()
		}
		setBool(&setting.MulticastSnooping, opts.MulticastSnooping)
		setUint(&setting.MulticastStartupQueryCount, opts.MulticastStartupQueryCount)
		setUint(&setting.MulticastStartupQueryInterval, opts.MulticastStartupQueryInterval)
		if opts.VlanProtocol != nil {
			setting.VlanProtocol = VlanProtocolToNM(*opts.VlanProtocol)
		}
		setUint(&setting.VlanDefaultPvid, opts.VlanDefaultPvid)
	}
	if _, mentioned := iface.PortNames(); mentioned {
		filtering := iface.VlanFilteringIsEnabled()
		setting.VlanFiltering = &filtering
	}
	conn.Bridge = setting
}

func genBondSetting(conn *Connection, conf *entities.BondConfig) {
	setting := conn.Bond
	if setting == nil {
		setting = &BondSetting{}
	}
	options := map[string]string{}
	for k, v := range setting.Options {
		options[k] = v
	}
	if conf != nil {
		if conf.Mode != nil {
			options["mode"] = string(*conf.Mode)
		}
		if opts := conf.Options; opts != nil {
			if opts.Miimon != nil {
				options["miimon"] = strconv.FormatUint(uint64(*opts.Miimon), 10)
			}
			if opts.Updelay != nil {
				options["updelay"] = strconv.FormatUint(uint64(*opts.Updelay), 10)
			}
			if opts.Downdelay != nil {
				options["downdelay"] = strconv.FormatUint(uint64(*opts.Downdelay), 10)
			}
			if opts.ArpInterval != nil {
				options["arp_interval"] = strconv.FormatUint(uint64(*opts.ArpInterval), 10)
			}
			if opts.ArpIPTarget != nil {
				options["arp_ip_target"] = *opts.ArpIPTarget
			}
			if opts.Primary != nil {
				options["primary"] = *opts.Primary
			}
			if opts.LacpRate != nil {
				options["lacp_rate"] = *opts.LacpRate
			}
			if opts.XmitHashPolicy != nil {
				options["xmit_hash_policy"] = *opts.XmitHashPolicy
			}
		}
	}
	if _, ok := options["mode"]; !ok {
		options["mode"] = string(entities.BondModeRoundRobin)
	}
	setting.Options = options
	conn.Bond = setting
}

func genOvsBridgeSetting(conn *Connection, iface *entities.OvsBridgeInterface) {
	setting := conn.OvsBridge
	if setting == nil {
		setting = &OvsBridgeSetting{}
	}
	if iface.Bridge != nil && iface.Bridge.Options != nil {
		opts := iface.Bridge.Options
		if opts.Stp != nil {
			setBool(&setting.Stp, opts.Stp.Enabled)
		}
		setBool(&setting.Rstp, opts.Rstp)
		setBool(&setting.McastSnoopingEnable, opts.McastSnoopingEnable)
		if opts.FailMode != nil && *opts.FailMode != "" {
			setting.FailMode = *opts.FailMode
		}
		if opts.Datapath != nil && *opts.Datapath != "" {
			setting.DatapathType = *opts.Datapath
		}
	}
	conn.OvsBridge = setting
}

func genOvsIfaceSetting(conn *Connection, iface *entities.OvsInterface) {
	switch {
	case iface.IsPatch():
		setting := conn.OvsIface
		if setting == nil {
			setting = &OvsIfaceSetting{}
		}
		setting.Type = "patch"
		conn.OvsIface = setting
		conn.OvsPatch = &OvsPatchSetting{Peer: iface.Patch.Peer}
	case iface.IsDpdk():
		setting := conn.OvsIface
		if setting == nil {
			setting = &OvsIfaceSetting{}
		}
		setting.Type = "dpdk"
		conn.OvsIface = setting
		dpdk := &OvsDpdkSetting{Devargs: iface.Dpdk.Devargs}
		setUint(&dpdk.NRxq, iface.Dpdk.RxQueue)
		conn.OvsDpdk = dpdk
	}
	if conn.OvsIface == nil {
		conn.OvsIface = &OvsIfaceSetting{Type: "internal"}
	}
}

func genVxlanSetting(conn *Connection, conf *entities.VxlanConfig) {
	if conf == nil {
		return
	}
	setting := &VxlanSetting{Parent: conf.BaseIface, ID: uint32(conf.ID)}
	setBool(&setting.Learning, conf.Learning)
	if conf.Local != nil {
		setting.Local = *conf.Local
	}
	if conf.Remote != nil {
		setting.Remote = *conf.Remote
	}
	setUint(&setting.DestinationPort, conf.DestinationPort)
	conn.Vxlan = setting
}

func genMacVlanSetting(conn *Connection, iface *entities.MacVlanInterface) error {
	if iface.MacVlan == nil {
		return nil
	}
	code, err := iface.MacVlan.Mode.Code()
	if err != nil {
		return err
	}
	setting := &MacVlanSetting{Parent: iface.MacVlan.BaseIface, Mode: code}
	setBool(&setting.Promiscuous, iface.MacVlan.Promiscuous)
	conn.MacVlan = setting
	return nil
}

func genInfiniBandSetting(conn *Connection, iface *entities.InfiniBandInterface) {
	setting := conn.InfiniBand
	if setting == nil {
		setting = &InfiniBandSetting{TransportMode: string(entities.InfiniBandModeDatagram)}
	}
	setUint(&setting.MTU, iface.MTU)
	if conf := iface.InfiniBand; conf != nil {
		setting.TransportMode = string(conf.Mode)
		if conf.BaseIface != nil {
			setting.Parent = *conf.BaseIface
		}
		setting.PKey = InfiniBandPkeyToNM(conf.Pkey)
	}
	conn.InfiniBand = setting
}

// genIeee8021XSetting writes 802.1x credentials. A masked private key
// password keeps the password of the existing profile.
func genIeee8021XSetting(conn *Connection, base *entities.BaseInterface) {
	conf := base.Ieee8021X
	if conf == nil {
		return
	}
	setting := &Ieee8021XSetting{}
	if conf.Identity != nil {
		setting.Identity = *conf.Identity
	}
	if conf.EapMethods != nil {
		setting.Eap = append([]string{}, *conf.EapMethods...)
	}
	if conf.PrivateKey != nil {
		setting.PrivateKey = *conf.PrivateKey
	}
	if conf.ClientCert != nil {
		setting.ClientCert = *conf.ClientCert
	}
	if conf.CaCert != nil {
		setting.CaCert = *conf.CaCert
	}
	if conf.PasswordIsHidden() {
		if conn.Ieee8021X != nil && conn.Ieee8021X.PrivateKeyPassword != nil {
			password := *conn.Ieee8021X.PrivateKeyPassword
			setting.PrivateKeyPassword = &password
		}
	} else if conf.PrivateKeyPassword != nil {
		password := *conf.PrivateKeyPassword
		setting.PrivateKeyPassword = &password
	}
	conn.Ieee8021X = setting
}

// genOvsExtIDsSetting keeps external ids only on OVS bridges and their
// ports. Any other profile has them cleared.
func genOvsExtIDsSetting(conn *Connection, base *entities.BaseInterface) {
	if base.Type != entities.InterfaceTypeOvsBridge && base.ControllerType != entities.InterfaceTypeOvsBridge {
		conn.OvsExtIDs = nil
		return
	}
	if base.OvsDB != nil {
		conn.OvsExtIDs = &OvsExtIDsSetting{Data: base.OvsDB.GetExternalIDs()}
	}
}

func genIPSettings(conn *Connection, base *entities.BaseInterface, nmType string) {
	if base.HasController() || nmType == TypeOvsBridge || nmType == TypeOvsPort {
		conn.IPv4, conn.IPv6 = nil, nil
		return
	}
	conn.IPv4 = ipSetting(conn.IPv4, base.IPv4, false)
	conn.IPv6 = ipSetting(conn.IPv6, base.IPv6, true)
}

func ipSetting(existing *IPSetting, conf *entities.InterfaceIP, ipv6 bool) *IPSetting {
	if conf == nil {
		if existing != nil {
			return existing
		}
		return &IPSetting{Method: "disabled"}
	}
	setting := &IPSetting{}
	if conf.Address != nil {
		for _, addr := range *conf.Address {
			setting.Addresses = append(setting.Addresses, fmt.Sprintf("%s/%d", addr.IP, addr.PrefixLength))
		}
		sort.Strings(setting.Addresses)
	}
	enabled := conf.Enabled == nil || bool(*conf.Enabled)
	dhcp := conf.DHCP != nil && bool(*conf.DHCP)
	autoconf := conf.Autoconf != nil && bool(*conf.Autoconf)
	switch {
	case !enabled:
		setting.Method = "disabled"
		setting.Addresses = nil
	case ipv6 && autoconf:
		setting.Method = "auto"
	case dhcp && ipv6:
		setting.Method = "dhcp"
	case dhcp:
		setting.Method = "auto"
	case len(setting.Addresses) > 0:
		setting.Method = "manual"
	case ipv6:
		setting.Method = "link-local"
	default:
		setting.Method = "disabled"
	}
	return setting
}
